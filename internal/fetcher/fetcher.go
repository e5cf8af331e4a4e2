// Package fetcher downloads feed documents over HTTP with per-host rate
// limiting and decodes XML in whatever charset the feed declares.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote feeds.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
