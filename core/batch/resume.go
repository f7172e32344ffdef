package batch

import (
	"context"

	"github.com/charmbracelet/log"
)

// AutoResumeAll relaunches every batch that is active but not completed.
// Called once at startup so runs interrupted by a crash or restart
// continue from their checkpoints without owner intervention.
func (e *Engine) AutoResumeAll(ctx context.Context) error {
	logger := log.FromContext(ctx)
	batches, err := e.store.IncompleteBatches(ctx)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		logger.Debug("No interrupted batches to resume")
		return nil
	}
	logger.Infof("Resuming %d interrupted batches", len(batches))
	for _, b := range batches {
		e.Launch(ctx, b.ID, true)
	}
	return nil
}
