package database

import (
	"context"

	"gorm.io/gorm/clause"
)

// IsFileCopied reports whether a copy already exists for the dedup key
// (source channel, source message, destination group, owner).
func IsFileCopied(ctx context.Context, sourceMessageID int, sourceChannelID, targetGroupID, userChatID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&File{}).
		Where("source_message_id = ? AND source_channel_id = ? AND target_group_id = ? AND user_chat_id = ?",
			sourceMessageID, sourceChannelID, targetGroupID, userChatID).
		Count(&count).Error
	return count > 0, err
}

// CreateFile records a completed copy. A collision on the dedup key is not
// an error: the record already exists and the insert is dropped.
func CreateFile(ctx context.Context, file *File) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_channel_id"},
			{Name: "source_message_id"},
			{Name: "target_group_id"},
			{Name: "user_chat_id"},
		},
		DoNothing: true,
	}).Create(file).Error
}
