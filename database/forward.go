package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrForwardExists = errors.New("an active forward for this source and destination already exists")

// CreateForward enforces the at-most-one-active-forward invariant for the
// (owner, source, destination) triple before inserting.
func CreateForward(ctx context.Context, forward *Forward) error {
	var count int64
	err := db.WithContext(ctx).Model(&Forward{}).
		Where("user_chat_id = ? AND source_channel_id = ? AND target_group_id = ? AND active = ?",
			forward.UserChatID, forward.SourceChannelID, forward.TargetGroupID, true).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrForwardExists
	}
	forward.Active = true
	return db.WithContext(ctx).Create(forward).Error
}

func GetForwardByID(ctx context.Context, id uint) (*Forward, error) {
	var forward Forward
	err := db.WithContext(ctx).First(&forward, id).Error
	return &forward, err
}

func GetActiveForwardsByUser(ctx context.Context, userChatID int64) ([]Forward, error) {
	var forwards []Forward
	err := db.WithContext(ctx).
		Where("user_chat_id = ? AND active = ?", userChatID, true).
		Find(&forwards).Error
	return forwards, err
}

func GetActiveForwardsBySource(ctx context.Context, sourceChannelID int64) ([]Forward, error) {
	var forwards []Forward
	err := db.WithContext(ctx).
		Where("source_channel_id = ? AND active = ?", sourceChannelID, true).
		Find(&forwards).Error
	return forwards, err
}

// DeactivateForward soft-deletes a forward. Records referencing it stay.
func DeactivateForward(ctx context.Context, id uint, userChatID int64) error {
	res := db.WithContext(ctx).Model(&Forward{}).
		Where("id = ? AND user_chat_id = ?", id, userChatID).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
