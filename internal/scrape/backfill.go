package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/pkg/brave"
)

// BraveImages backfills article images from Brave image search.
type BraveImages struct {
	client brave.Client
}

// NewBraveImages creates an ImageSearcher over the Brave client.
func NewBraveImages(client brave.Client) *BraveImages {
	return &BraveImages{client: client}
}

// SearchImage returns the first result's image URL.
func (b *BraveImages) SearchImage(ctx context.Context, query string) (string, int, error) {
	resp, err := b.client.ImageSearch(ctx, query, 1)
	if err != nil {
		if errors.Is(err, brave.ErrNoKeys) {
			return "", 0, eris.Wrap(err, "backfill: image search")
		}
		return "", 1, eris.Wrap(err, "backfill: image search")
	}
	for _, r := range resp.Results {
		if u := r.ImageURL(); u != "" {
			return u, 1, nil
		}
	}
	return "", 1, eris.New("backfill: no image results")
}
