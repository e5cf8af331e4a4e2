package scrape

import (
	"context"

	"github.com/visita-intel/newsintel/internal/model"
)

// TestModeText is the context returned for every article in test mode.
const TestModeText = "<p>Test Content: Valve announced Half-Life 3 today. It is a VR exclusive.</p>"

// Static returns fixed text without any network access.
type Static struct {
	Text   string
	Method model.AcquisitionMethod
}

func (s Static) Name() string           { return "static" }
func (s Static) Supports(_ string) bool { return true }

func (s Static) Attempt(_ context.Context, _ Target) (*Attempt, error) {
	return &Attempt{Text: s.Text, Method: s.Method}, nil
}

// NewTestModeAcquirer returns an Acquirer that never touches the network.
func NewTestModeAcquirer() *Acquirer {
	return NewAcquirer([]Strategy{Static{Text: TestModeText, Method: model.MethodScraped}})
}
