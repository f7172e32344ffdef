package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrBatchRunning = errors.New("user already has an incomplete batch")

// CreateBatch enforces the one-incomplete-batch-per-owner invariant.
func CreateBatch(ctx context.Context, batch *Batch) error {
	running, err := HasIncompleteBatch(ctx, batch.UserChatID)
	if err != nil {
		return err
	}
	if running {
		return ErrBatchRunning
	}
	batch.Active = true
	batch.Completed = false
	return db.WithContext(ctx).Create(batch).Error
}

func GetBatchByID(ctx context.Context, id uint) (*Batch, error) {
	var batch Batch
	err := db.WithContext(ctx).First(&batch, id).Error
	return &batch, err
}

// UpdateBatch persists the mutable batch fields. It updates in place and
// never recreates a deleted record; a vanished batch reports
// gorm.ErrRecordNotFound.
func UpdateBatch(ctx context.Context, batch *Batch) error {
	res := db.WithContext(ctx).Model(&Batch{}).Where("id = ?", batch.ID).
		Updates(map[string]any{
			"active":              batch.Active,
			"completed":           batch.Completed,
			"progress_message_id": batch.ProgressMessageID,
			"last_message_id":     batch.LastMessageID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func SetBatchActive(ctx context.Context, id uint, active bool) error {
	return db.WithContext(ctx).Model(&Batch{}).Where("id = ?", id).
		Update("active", active).Error
}

func DeleteBatch(ctx context.Context, id uint) error {
	return db.WithContext(ctx).Unscoped().Delete(&Batch{}, id).Error
}

func HasIncompleteBatch(ctx context.Context, userChatID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Batch{}).
		Where("user_chat_id = ? AND completed = ?", userChatID, false).
		Count(&count).Error
	return count > 0, err
}

func GetIncompleteBatches(ctx context.Context) ([]Batch, error) {
	var batches []Batch
	err := db.WithContext(ctx).Where("completed = ?", false).Find(&batches).Error
	return batches, err
}

func GetIncompleteBatchesByUser(ctx context.Context, userChatID int64) ([]Batch, error) {
	var batches []Batch
	err := db.WithContext(ctx).
		Where("user_chat_id = ? AND completed = ?", userChatID, false).
		Find(&batches).Error
	return batches, err
}
