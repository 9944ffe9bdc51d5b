package port

import "context"

// ObjectStorage abstracts the cloud object store holding source workbook
// exports. The pipeline core never performs I/O; only the ingestion driver
// fetches through this interface.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}
