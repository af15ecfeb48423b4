package opening

import (
	"context"

	"go.uber.org/zap"
)

// Fallback answers from primary and switches to secondary whenever primary errors.
type Fallback struct {
	primary   Source
	secondary Source
	log       *zap.Logger
}

func NewFallback(primary, secondary Source, log *zap.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) All(ctx context.Context) ([]Opening, error) {
	openings, err := f.primary.All(ctx)
	if err == nil {
		return openings, nil
	}
	f.log.Warn("falling back to built-in openings", zap.Error(err))
	return f.secondary.All(ctx)
}

func (f *Fallback) MarkListened(ctx context.Context, id string) error {
	if err := f.primary.MarkListened(ctx, id); err != nil {
		f.log.Debug("primary source could not mark opening", zap.String("opening_id", id), zap.Error(err))
		return f.secondary.MarkListened(ctx, id)
	}
	return nil
}

func (f *Fallback) ResetListened(ctx context.Context) error {
	if err := f.primary.ResetListened(ctx); err != nil {
		f.log.Warn("primary source could not reset listened flags", zap.Error(err))
		return f.secondary.ResetListened(ctx)
	}
	return nil
}
