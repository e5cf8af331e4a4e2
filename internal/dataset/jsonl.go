package dataset

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/internal/model"
)

var stdout io.Writer = os.Stdout

// JSONL writes one JSON object per line.
type JSONL struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONL writes records to w. Close does not close w.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{enc: json.NewEncoder(w)}
}

// CreateJSONL appends records to the file at path, creating it if needed.
func CreateJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	return &JSONL{enc: json.NewEncoder(f), closer: f}, nil
}

func (j *JSONL) Push(_ context.Context, rec model.DatasetRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(rec); err != nil {
		return eris.Wrapf(err, "dataset: encode %s", rec.URL)
	}
	return nil
}

func (j *JSONL) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
