package database

import "context"

// Store adapts the package-level queries to the interfaces the core
// packages consume.
type Store struct{}

func (Store) GetBatch(ctx context.Context, id uint) (*Batch, error) {
	return GetBatchByID(ctx, id)
}

func (Store) UpdateBatch(ctx context.Context, batch *Batch) error {
	return UpdateBatch(ctx, batch)
}

func (Store) GetForward(ctx context.Context, id uint) (*Forward, error) {
	return GetForwardByID(ctx, id)
}

func (Store) IsFileCopied(ctx context.Context, sourceMessageID int, sourceChannelID, targetGroupID, userChatID int64) (bool, error) {
	return IsFileCopied(ctx, sourceMessageID, sourceChannelID, targetGroupID, userChatID)
}

func (Store) CreateFile(ctx context.Context, file *File) error {
	return CreateFile(ctx, file)
}

func (Store) IncompleteBatches(ctx context.Context) ([]Batch, error) {
	return GetIncompleteBatches(ctx)
}

func (Store) ActiveForwardsBySource(ctx context.Context, sourceChannelID int64) ([]Forward, error) {
	return GetActiveForwardsBySource(ctx, sourceChannelID)
}
