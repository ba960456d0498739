package interfaces

import (
	"context"

	"github.com/engamit83/intraday-insight/internal/types"
)

// Engine runs the decision pipeline. Scan evaluates one symbol for entry,
// Monitor sweeps open positions for exits, Learn runs the outcome learner
// and applies fresh adjustments.
type Engine interface {
	Scan(ctx context.Context, symbol string) (*types.ScanResult, error)
	Monitor(ctx context.Context) error
	Learn(ctx context.Context) error
}
