// Package s3 provides a blob-store backend over AWS S3 (or any
// S3-compatible endpoint such as minio). Object operations are already
// atomic per call, so the Session carries no transaction boundary.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sharedkit/txn"
)

// Config holds connection details for the S3 endpoint.
type Config struct {
	// HostEndpointUrl e.g. "http://127.0.0.1:9000" for minio.
	HostEndpointUrl string
	// Region e.g. "us-east-1".
	Region   string
	Username string
	Password string
}

// Connect creates an S3 client for the configured endpoint.
func Connect(config Config) *awss3.Client {
	return awss3.NewFromConfig(aws.Config{Region: config.Region}, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(config.HostEndpointUrl)
		o.Credentials = credentials.NewStaticCredentialsProvider(config.Username, config.Password, "")
	})
}

// Session wraps the S3 client. NoBoundary: every object call commits on
// its own, so rollback cannot undo prior puts in the same execution.
type Session struct {
	txn.NoBoundary
	client *awss3.Client
}

// NewProvider returns a Provider handing out Sessions over the shared
// client.
func NewProvider(client *awss3.Client) txn.Provider {
	return txn.ProviderFunc{
		AcquireFunc: func(ctx context.Context) (txn.Session, error) {
			if client == nil {
				return nil, txn.NewError(txn.AcquisitionFailed, fmt.Errorf("s3: client is nil"))
			}
			return &Session{client: client}, nil
		},
	}
}

// NewInterpreter returns the Interpreter serving blob capabilities against
// S3 Sessions. Blob.Container maps to the bucket and Blob.Name to the key.
func NewInterpreter() txn.Interpreter {
	d := txn.NewDispatch()
	d.Handle(txn.BlobPut, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, blob, err := sessionAndBlob(sess, op)
		if err != nil {
			return nil, err
		}
		_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket: aws.String(blob.Container),
			Key:    aws.String(blob.Name),
			Body:   bytes.NewReader(blob.Data),
		})
		if err != nil {
			return nil, classify(err)
		}
		return nil, nil
	})
	d.Handle(txn.BlobGet, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, blob, err := sessionAndBlob(sess, op)
		if err != nil {
			return nil, err
		}
		out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(blob.Container),
			Key:    aws.String(blob.Name),
		})
		if err != nil {
			return nil, classify(err)
		}
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, txn.NewBackendFailure(txn.ClassConnectivity, err)
		}
		return data, nil
	})
	d.Handle(txn.BlobDelete, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, blob, err := sessionAndBlob(sess, op)
		if err != nil {
			return nil, err
		}
		_, err = s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(blob.Container),
			Key:    aws.String(blob.Name),
		})
		if err != nil {
			return nil, classify(err)
		}
		return nil, nil
	})
	return d
}

// classify maps S3 errors onto the taxonomy.
func classify(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return txn.NewBackendFailure(txn.ClassNotFound, err)
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return txn.NewBackendFailure(txn.ClassNotFound, err)
	}
	return txn.Classify(err)
}

func sessionAndBlob(sess txn.Session, op txn.Op) (*Session, txn.Blob, error) {
	s, ok := sess.(*Session)
	if !ok {
		return nil, txn.Blob{}, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("s3: session is %T, want *s3.Session", sess))
	}
	blob, ok := op.Input.(txn.Blob)
	if !ok {
		return nil, txn.Blob{}, txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("s3: %s wants Blob, got %T", op.Capability, op.Input))
	}
	return s, blob, nil
}
