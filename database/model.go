package database

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ChatID int64 `gorm:"uniqueIndex;not null"`
	Phone  string
}

// Forward is a stored routing rule from one source channel to one
// destination group, owned by a user. Soft-deleted via Active.
type Forward struct {
	gorm.Model
	UserChatID         int64 `gorm:"index;not null"`
	SourceChannelID    int64 `gorm:"index;not null"`
	SourceChannelTitle string
	TargetGroupID      int64 `gorm:"not null"`
	TargetGroupTitle   string
	Active             bool `gorm:"default:true"`
}

// Batch is one resumable indexing job over a message-id range of a
// Forward's source channel. LastMessageID is the checkpoint cursor: the
// last source message id the engine has advanced past.
type Batch struct {
	gorm.Model
	UserChatID        int64 `gorm:"index;not null"`
	ForwardID         uint  `gorm:"not null"`
	Active            bool  `gorm:"default:true"`
	Completed         bool  `gorm:"default:false"`
	ProgressMessageID int
	LastMessageID     int
	StartMessageID    int
}

// File records that a source message was already copied to a destination
// group. The four-column unique index is the dedup key.
type File struct {
	gorm.Model
	SourceChannelID int64 `gorm:"uniqueIndex:idx_file_dedup;not null"`
	SourceMessageID int   `gorm:"uniqueIndex:idx_file_dedup;not null"`
	TargetGroupID   int64 `gorm:"uniqueIndex:idx_file_dedup;not null"`
	UserChatID      int64 `gorm:"uniqueIndex:idx_file_dedup;not null"`
	TargetMessageID int
	ForwardID       uint
}
