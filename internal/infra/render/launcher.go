package render

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
)

// InitLauncher starts the browser of the named backend.
func InitLauncher(ctx context.Context, cfg *config.Config, backend string) (Launcher, error) {
	switch backend {
	case config.BackendChromedp:
		return InitChromedpLauncher(ctx, cfg)
	case config.BackendRod:
		return InitRodLauncher(cfg)
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrInvalidBackend, backend)
	}
}

type splitLauncher struct {
	primary  Launcher
	isolated Launcher
}

// Split serves Primary from primary and Isolated from isolated.
// Close shuts both down.
func Split(primary, isolated Launcher) Launcher {
	if primary == isolated {
		return primary
	}
	return &splitLauncher{primary: primary, isolated: isolated}
}

func (sl *splitLauncher) Primary(ctx context.Context) (Session, error) {
	return sl.primary.Primary(ctx)
}

func (sl *splitLauncher) Isolated(ctx context.Context) (Session, error) {
	return sl.isolated.Isolated(ctx)
}

func (sl *splitLauncher) Close() {
	sl.isolated.Close()
	sl.primary.Close()
}
