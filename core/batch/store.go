package batch

import (
	"context"

	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
)

// Store is the slice of persistence the engine needs. The authoritative
// batch record is re-read through it while a run is in flight, so pause
// and delete commands issued elsewhere take effect cooperatively.
type Store interface {
	GetBatch(ctx context.Context, id uint) (*database.Batch, error)
	UpdateBatch(ctx context.Context, batch *database.Batch) error
	GetForward(ctx context.Context, id uint) (*database.Forward, error)
	IsFileCopied(ctx context.Context, sourceMessageID int, sourceChannelID, targetGroupID, userChatID int64) (bool, error)
	CreateFile(ctx context.Context, file *database.File) error
	IncompleteBatches(ctx context.Context) ([]database.Batch, error)
}

// Sessions resolves an owner to their authenticated userbot session.
type Sessions interface {
	Platform(ownerID int64) (tgplat.Platform, bool)
}
