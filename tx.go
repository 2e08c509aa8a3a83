package txn

import "context"

// Description is a composed, backend-agnostic program of Operations that
// produces a T when interpreted. Descriptions are immutable once built and
// may be reused across executions; all failures surface only during
// interpretation, never at composition time.
//
// Combinators are free functions rather than methods because Go methods
// cannot introduce new type parameters.
type Description[T any] interface {
	Run(ctx context.Context, env *Env) (T, error)
}

// Func adapts a plain function into a Description.
type Func[T any] func(ctx context.Context, env *Env) (T, error)

// Run implements Description.
func (f Func[T]) Run(ctx context.Context, env *Env) (T, error) {
	return f(ctx, env)
}

// Pure is a Description that performs no backend interaction and always
// succeeds with v. It is the identity for AndThen.
func Pure[T any](v T) Description[T] {
	return Func[T](func(context.Context, *Env) (T, error) {
		return v, nil
	})
}

// Fail is a Description that always fails with err.
func Fail[T any](err error) Description[T] {
	return Func[T](func(context.Context, *Env) (T, error) {
		var zero T
		return zero, err
	})
}

// AndThen sequences two Descriptions: runs d, feeds its result to f, then
// runs the Description f built. If d fails, f is never invoked and the
// failure propagates unchanged.
func AndThen[A, B any](d Description[A], f func(A) Description[B]) Description[B] {
	return Func[B](func(ctx context.Context, env *Env) (B, error) {
		a, err := d.Run(ctx, env)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a).Run(ctx, env)
	})
}

// Then sequences on the outcome of d, success or failure: f receives the
// value and the error and decides how to continue.
func Then[A, B any](d Description[A], f func(A, error) Description[B]) Description[B] {
	return Func[B](func(ctx context.Context, env *Env) (B, error) {
		a, err := d.Run(ctx, env)
		return f(a, err).Run(ctx, env)
	})
}

// Map transforms the success value of d.
func Map[A, B any](d Description[A], f func(A) B) Description[B] {
	return Func[B](func(ctx context.Context, env *Env) (B, error) {
		a, err := d.Run(ctx, env)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	})
}

// TryMap transforms the success value of d with a function that may fail.
func TryMap[A, B any](d Description[A], f func(A) (B, error)) Description[B] {
	return Func[B](func(ctx context.Context, env *Env) (B, error) {
		a, err := d.Run(ctx, env)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a)
	})
}

// MapErr transforms the failure of d; success passes through unchanged.
func MapErr[T any](d Description[T], f func(error) error) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return v, f(err)
		}
		return v, nil
	})
}

// OrElse runs the fallback Description built by f when d fails. Success of
// either side satisfies the combined Description.
func OrElse[T any](d Description[T], f func(error) Description[T]) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return f(err).Run(ctx, env)
		}
		return v, nil
	})
}

// Recover converts a failure of d into a success value.
func Recover[T any](d Description[T], f func(error) T) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return f(err), nil
		}
		return v, nil
	})
}

// TryRecover converts a failure of d into a new outcome; the handler may
// fail with a different error.
func TryRecover[T any](d Description[T], f func(error) (T, error)) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return f(err)
		}
		return v, nil
	})
}

// Abort converts a success of d into a failure; validation guard that
// rejects values after the fact. A nil error from f accepts the value and
// passes it through unchanged.
func Abort[T any](d Description[T], f func(T) error) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return v, err
		}
		if gerr := f(v); gerr != nil {
			var zero T
			return zero, gerr
		}
		return v, nil
	})
}

// TryAbort inspects a success of d and either passes it through or fails.
func TryAbort[T any](d Description[T], f func(T) (T, error)) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		v, err := d.Run(ctx, env)
		if err != nil {
			return v, err
		}
		return f(v)
	})
}

// Pair is the product of two Description results.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the product of three Description results.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Join runs d1 then d2 and yields both results. Failures short-circuit in
// left-to-right order, the same as AndThen.
func Join[A, B any](d1 Description[A], d2 Description[B]) Description[Pair[A, B]] {
	return Func[Pair[A, B]](func(ctx context.Context, env *Env) (Pair[A, B], error) {
		var zero Pair[A, B]
		a, err := d1.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		b, err := d2.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		return Pair[A, B]{First: a, Second: b}, nil
	})
}

// Quad is the product of four Description results.
type Quad[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// Join3 runs three Descriptions in order and yields all results.
func Join3[A, B, C any](d1 Description[A], d2 Description[B], d3 Description[C]) Description[Triple[A, B, C]] {
	return Func[Triple[A, B, C]](func(ctx context.Context, env *Env) (Triple[A, B, C], error) {
		var zero Triple[A, B, C]
		a, err := d1.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		b, err := d2.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		c, err := d3.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		return Triple[A, B, C]{First: a, Second: b, Third: c}, nil
	})
}

// Join4 runs four Descriptions in order and yields all results.
func Join4[A, B, C, D any](d1 Description[A], d2 Description[B], d3 Description[C], d4 Description[D]) Description[Quad[A, B, C, D]] {
	return Func[Quad[A, B, C, D]](func(ctx context.Context, env *Env) (Quad[A, B, C, D], error) {
		var zero Quad[A, B, C, D]
		a, err := d1.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		b, err := d2.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		c, err := d3.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		d, err := d4.Run(ctx, env)
		if err != nil {
			return zero, err
		}
		return Quad[A, B, C, D]{First: a, Second: b, Third: c, Fourth: d}, nil
	})
}

// All runs Descriptions of the same type in order and collects the results.
func All[T any](ds ...Description[T]) Description[[]T] {
	return Func[[]T](func(ctx context.Context, env *Env) ([]T, error) {
		out := make([]T, 0, len(ds))
		for _, d := range ds {
			v, err := d.Run(ctx, env)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}
