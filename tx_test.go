package txn

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

var errBoom = errors.New("boom")

func run[T any](t *testing.T, d Description[T]) (T, error) {
	t.Helper()
	return d.Run(context.Background(), &Env{})
}

func Test_Pure(t *testing.T) {
	v, err := run(t, Pure(42))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}
}

func Test_Map(t *testing.T) {
	double := func(v int) int { return v * 2 }

	v, err := run(t, Map(Pure(21), double))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	v, err = run(t, Map(Fail[int](errBoom), double))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got (%v, %v), want errBoom", v, err)
	}
}

func Test_AndThen(t *testing.T) {
	f := func(v int) Description[int] { return Pure(v * 2) }

	v, err := run(t, AndThen(Pure(21), f))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	v, err = run(t, AndThen(Fail[int](errBoom), f))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got (%v, %v), want errBoom", v, err)
	}
}

// AndThen(Pure(v), f) behaves identically to f(v).
func Test_AndThen_IdentityLaw(t *testing.T) {
	f := func(v int) Description[string] { return Pure(fmt.Sprintf("<%d>", v)) }

	for _, v := range []int{-1, 0, 21, 1 << 20} {
		got, err := run(t, AndThen(Pure(v), f))
		if err != nil {
			t.Fatalf("v=%d: %v", v, err)
		}
		want, err := run(t, f(v))
		if err != nil {
			t.Fatalf("v=%d: %v", v, err)
		}
		if got != want {
			t.Fatalf("v=%d: got %q, want %q", v, got, want)
		}
	}
}

// AndThen(d, Pure) behaves identically to d.
func Test_AndThen_RightIdentityLaw(t *testing.T) {
	d := Map(Pure(20), func(v int) int { return v + 1 })
	got, err := run(t, AndThen(d, Pure[int]))
	if err != nil || got != 21 {
		t.Fatalf("got (%v, %v), want (21, nil)", got, err)
	}
}

// AndThen(AndThen(d, f), g) behaves identically to
// AndThen(d, func(a) { return AndThen(f(a), g) }).
func Test_AndThen_Associativity(t *testing.T) {
	d := Pure(3)
	f := func(v int) Description[int] { return Pure(v + 10) }
	g := func(v int) Description[int] { return Pure(v * 10) }

	left, err := run(t, AndThen(AndThen(d, f), g))
	if err != nil {
		t.Fatal(err)
	}
	right, err := run(t, AndThen(d, func(a int) Description[int] { return AndThen(f(a), g) }))
	if err != nil {
		t.Fatal(err)
	}
	if left != right || left != 130 {
		t.Fatalf("got left=%d right=%d, want both 130", left, right)
	}
}

func Test_AndThen_ShortCircuit(t *testing.T) {
	ran := false
	d := AndThen(Fail[int](errBoom), func(v int) Description[int] {
		ran = true
		return Pure(v)
	})
	if _, err := run(t, d); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if ran {
		t.Fatal("continuation ran after a failure")
	}
}

func Test_Then(t *testing.T) {
	f := func(v int, err error) Description[int] {
		if err != nil {
			return Pure(-1)
		}
		return Pure(v * 2)
	}

	v, err := run(t, Then(Pure(21), f))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	v, err = run(t, Then(Fail[int](errBoom), f))
	if err != nil || v != -1 {
		t.Fatalf("got (%v, %v), want (-1, nil)", v, err)
	}
}

func Test_OrElse(t *testing.T) {
	fallback := func(error) Description[int] { return Pure(42) }

	v, err := run(t, OrElse(Pure(21), fallback))
	if err != nil || v != 21 {
		t.Fatalf("got (%v, %v), want (21, nil)", v, err)
	}

	v, err = run(t, OrElse(Fail[int](errBoom), fallback))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}
}

func Test_MapErr(t *testing.T) {
	wrapped := errors.New("wrapped")
	f := func(error) error { return wrapped }

	v, err := run(t, MapErr(Pure(42), f))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	if _, err := run(t, MapErr(Fail[int](errBoom), f)); !errors.Is(err, wrapped) {
		t.Fatalf("got %v, want wrapped", err)
	}
}

func Test_TryMap(t *testing.T) {
	v, err := run(t, TryMap(Pure(21), func(v int) (int, error) { return v * 2, nil }))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	_, err = run(t, TryMap(Pure(10), func(int) (int, error) { return 0, errBoom }))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_Recover(t *testing.T) {
	f := func(error) int { return 42 }

	v, err := run(t, Recover(Pure(21), f))
	if err != nil || v != 21 {
		t.Fatalf("got (%v, %v), want (21, nil)", v, err)
	}

	v, err = run(t, Recover(Fail[int](errBoom), f))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}
}

func Test_TryRecover(t *testing.T) {
	again := errors.New("error again")
	cases := []struct {
		name    string
		d       Description[int]
		f       func(error) (int, error)
		want    int
		wantErr error
	}{
		{"success passes through", Pure(21), func(error) (int, error) { return 42, nil }, 21, nil},
		{"failure recovered", Fail[int](errBoom), func(error) (int, error) { return 42, nil }, 42, nil},
		{"failure re-raised", Fail[int](errBoom), func(error) (int, error) { return 0, again }, 0, again},
	}
	for _, tt := range cases {
		v, err := run(t, TryRecover(tt.d, tt.f))
		if !errors.Is(err, tt.wantErr) || v != tt.want {
			t.Fatalf("%s: got (%v, %v), want (%v, %v)", tt.name, v, err, tt.want, tt.wantErr)
		}
	}
}

func Test_Abort(t *testing.T) {
	tooSmall := errors.New("too small")
	guard := func(v int) error {
		if v < 21 {
			return tooSmall
		}
		return nil
	}

	_, err := run(t, Abort(Pure(10), guard))
	if !errors.Is(err, tooSmall) {
		t.Fatalf("got %v, want tooSmall", err)
	}

	// An accepting guard passes the original value through, not the zero value.
	v, err := run(t, Abort(Pure(42), guard))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	_, err = run(t, Abort(Fail[int](errBoom), guard))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_TryAbort(t *testing.T) {
	v, err := run(t, TryAbort(Pure(21), func(v int) (int, error) { return v * 2, nil }))
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	_, err = run(t, TryAbort(Pure(10), func(int) (int, error) { return 0, errBoom }))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_Join(t *testing.T) {
	v, err := run(t, Join(Pure(42), Pure("ok")))
	if err != nil || v.First != 42 || v.Second != "ok" {
		t.Fatalf("got (%v, %v), want ({42 ok}, nil)", v, err)
	}

	if _, err := run(t, Join(Fail[int](errBoom), Pure("ng"))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if _, err := run(t, Join(Pure(42), Fail[string](errBoom))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_Join3(t *testing.T) {
	v, err := run(t, Join3(Pure(42), Pure("ok"), Pure(true)))
	if err != nil || v.First != 42 || v.Second != "ok" || !v.Third {
		t.Fatalf("got (%v, %v), want ({42 ok true}, nil)", v, err)
	}

	if _, err := run(t, Join3(Pure(42), Fail[string](errBoom), Pure(true))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_Join4(t *testing.T) {
	v, err := run(t, Join4(Pure(42), Pure("ok"), Pure(true), Pure(3.14)))
	if err != nil || v.First != 42 || v.Second != "ok" || !v.Third || v.Fourth != 3.14 {
		t.Fatalf("got (%v, %v), want ({42 ok true 3.14}, nil)", v, err)
	}

	if _, err := run(t, Join4(Fail[int](errBoom), Pure("ng"), Pure(false), Pure(3.14))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if _, err := run(t, Join4(Pure(42), Fail[string](errBoom), Pure(false), Pure(3.14))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if _, err := run(t, Join4(Pure(42), Pure("ok"), Fail[bool](errBoom), Pure(3.14))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if _, err := run(t, Join4(Pure(42), Pure("ok"), Pure(true), Fail[float64](errBoom))); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
}

func Test_All(t *testing.T) {
	vs, err := run(t, All(Pure(1), Pure(2), Pure(3)))
	if err != nil || len(vs) != 3 || vs[0] != 1 || vs[2] != 3 {
		t.Fatalf("got (%v, %v), want ([1 2 3], nil)", vs, err)
	}

	ran := false
	_, err = run(t, All(Pure(1), Fail[int](errBoom), Func[int](func(context.Context, *Env) (int, error) {
		ran = true
		return 0, nil
	})))
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if ran {
		t.Fatal("later element ran after a failure")
	}
}
