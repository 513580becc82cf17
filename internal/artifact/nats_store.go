package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsStore keeps artifacts in a NATS JetStream object store bucket. It
// is an alternative to FileStore for deployments where the service does
// not own durable local disk.
type NatsStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNatsStore creates the bucket if needed, or binds to it when it
// already exists.
func NewNatsStore(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Artifacts for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Save puts an artifact into the bucket under key.
func (n *NatsStore) Save(_ context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to put artifact '%s' to bucket '%s': %w",
			core.ErrStorage, key, n.bucket, err)
	}

	return nil
}

// Load retrieves the artifact stored under key.
func (n *NatsStore) Load(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get artifact '%s' from bucket '%s': %w",
			core.ErrStorage, key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read artifact '%s': %w", core.ErrStorage, key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("%w: failed to close artifact '%s': %w", core.ErrStorage, key, closeErr)
	}

	return data, nil
}

// Delete removes the artifact stored under key.
func (n *NatsStore) Delete(_ context.Context, key string) error {
	err := n.store.Delete(key)
	if err != nil {
		return fmt.Errorf("%w: failed to delete artifact '%s' from bucket '%s': %w",
			core.ErrStorage, key, n.bucket, err)
	}

	return nil
}
