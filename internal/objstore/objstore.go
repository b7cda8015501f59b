package objstore

import "context"

// Store holds staged photo binaries. Chat sessions persist only the object
// key; previews are served through presigned GETs.
type Store interface {
	Put(ctx context.Context, key, name string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
