// Package fetcher downloads the tier feed documents over HTTP and parses
// them as header-mapped CSV.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote documents.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// owns the returned reader.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
