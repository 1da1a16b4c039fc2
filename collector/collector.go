package collector

import (
	"context"

	"github.com/ftahirops/circuittop/model"
)

// Source produces one circuit dataset per call.
type Source interface {
	Name() string
	Collect(ctx context.Context) (model.Dataset, error)
}

// Resetter asks the server to reset a circuit's fuse.
type Resetter interface {
	ResetCircuit(ctx context.Context, id model.CircuitID) error
}
