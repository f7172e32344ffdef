package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krau/TopicDex-Bot/config"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

var db *gorm.DB

func Init(ctx context.Context) {
	logger := log.FromContext(ctx)
	if err := os.MkdirAll(filepath.Dir(config.C().DB.Path), 0755); err != nil {
		logger.Fatal("Failed to create data directory: ", err)
	}
	var err error
	db, err = gorm.Open(GetDialect(config.C().DB.Path), &gorm.Config{
		Logger: glogger.New(logger, glogger.Config{
			Colorful:                  true,
			SlowThreshold:             time.Second * 5,
			LogLevel:                  glogger.Error,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
		PrepareStmt: true,
	})
	if err != nil {
		logger.Fatal("Failed to open database: ", err)
	}
	logger.Debug("Database connected")
	if err := db.AutoMigrate(&User{}, &Forward{}, &Batch{}, &File{}); err != nil {
		logger.Fatal("Database migration failed; if upgrading from an old version, try deleting the database file and retrying", "error", err)
	}
	if err := syncUsers(ctx); err != nil {
		logger.Fatal("Failed to sync users:", err)
	}
	logger.Info("Database initialized")
}

func syncUsers(ctx context.Context) error {
	logger := log.FromContext(ctx)
	dbUsers, err := GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to get users: %w", err)
	}

	dbUserMap := make(map[int64]User)
	for _, u := range dbUsers {
		dbUserMap[u.ChatID] = u
	}

	for _, cu := range config.C().Users {
		if existing, ok := dbUserMap[cu.ID]; ok {
			if existing.Phone != cu.Phone {
				existing.Phone = cu.Phone
				if err := UpdateUser(ctx, &existing); err != nil {
					return fmt.Errorf("failed to update user %d: %w", cu.ID, err)
				}
			}
			continue
		}
		if err := CreateUser(ctx, cu.ID, cu.Phone); err != nil {
			return fmt.Errorf("failed to create user %d: %w", cu.ID, err)
		}
		logger.Infof("Created user from config: %d", cu.ID)
	}

	cfgUserMap := make(map[int64]struct{})
	for _, u := range config.C().Users {
		cfgUserMap[u.ID] = struct{}{}
	}
	for dbID, dbUser := range dbUserMap {
		if _, exists := cfgUserMap[dbID]; !exists {
			if err := DeleteUser(ctx, &dbUser); err != nil {
				return fmt.Errorf("failed to delete user %d: %w", dbID, err)
			}
			logger.Infof("Deleted user not present in config: %d", dbID)
		}
	}

	return nil
}
