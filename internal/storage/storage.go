// Package storage provides the blob sinks used by the result writer: a local
// filesystem store for development and an S3-compatible object store for
// deployments.
package storage

import "context"

// BlobStore persists generated image bytes and resolves their public URL.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte, mime string) (string, error)
	PublicURL(key string) string
}
