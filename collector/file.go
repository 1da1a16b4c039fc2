package collector

import (
	"context"
	"fmt"
	"os"

	"github.com/ftahirops/circuittop/model"
)

// FileSource re-reads a saved /getPower response on every poll.
type FileSource struct {
	Path string
}

// Name implements Source.
func (f FileSource) Name() string { return "file" }

// Collect implements Source.
func (f FileSource) Collect(ctx context.Context) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	ds, err := model.ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return ds, nil
}
