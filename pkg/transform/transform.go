// Package transform fits epoch frames onto the reference grid.
//
// The fit itself is delegated through the Transformer interface: production
// runs drive an external point-matching solver (Exec), tests and synthetic
// reductions plug in a function (Func).
package transform

import (
	"context"

	"github.com/astriolab/pmfuse/pkg/catalog"
	"github.com/astriolab/pmfuse/pkg/errors"
	"github.com/astriolab/pmfuse/pkg/frame"
)

// Request carries everything a transformer needs to fit one frame. The
// subset is a per-call snapshot; implementations must not retain it past
// the call.
type Request struct {
	Frame  *frame.Frame
	Subset *catalog.Table        // Stars to fit against, with their best current PMs
	Prior  *frame.Transformation // Previous iteration's (possibly trimmed) fit, nil on the first
}

// Result is a fitted frame: the transformation with its residual sample
// and the per-star matches behind it.
type Result struct {
	Transformation *frame.Transformation
	Matches        []frame.Match
}

// Transformer fits one frame onto the reference grid.
type Transformer interface {
	Transform(ctx context.Context, req *Request) (*Result, error)
}

// Func adapts a function to the Transformer interface.
type Func func(ctx context.Context, req *Request) (*Result, error)

// Transform calls f.
func (f Func) Transform(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

func validateRequest(req *Request) error {
	if req == nil || req.Frame == nil {
		return errors.NewValidationError("frame", nil, "transform request has no frame")
	}
	if err := req.Frame.Validate(); err != nil {
		return err
	}
	if req.Subset == nil || req.Subset.Len() == 0 {
		return errors.NewValidationError("subset", req.Frame.ID, "transform request has no stars")
	}
	return nil
}
