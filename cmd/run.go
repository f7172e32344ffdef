package cmd

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krau/TopicDex-Bot/client/bot"
	"github.com/krau/TopicDex-Bot/client/user"
	"github.com/krau/TopicDex-Bot/config"
	"github.com/krau/TopicDex-Bot/core/batch"
	"github.com/krau/TopicDex-Bot/core/dispatch"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/spf13/cobra"
)

func Run(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	if err := config.Init(ctx, config.GetConfigFile(cmd)); err != nil {
		log.Fatalf("Failed to load config: %s", err)
	}
	level, err := log.ParseLevel(config.C().Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	ctx = log.WithContext(ctx, logger)

	database.Init(ctx)

	store := database.Store{}
	sessions := user.Sessions{}
	engine := batch.NewEngine(store, sessions, bot.Notifier(), batch.Options{
		MessageDelay:   time.Duration(config.C().Batch.MessageDelay) * time.Second,
		CheckInterval:  config.C().Batch.CheckInterval,
		ReportInterval: config.C().Batch.ReportInterval,
	})
	dispatcher := dispatch.NewDispatcher(store, sessions, bot.Notifier())

	if err := user.Init(ctx, dispatcher.Enqueue); err != nil {
		logger.Fatalf("Failed to log in user clients: %s", err)
	}
	if err := bot.Init(ctx, engine); err != nil {
		logger.Fatalf("Failed to initialize bot: %s", err)
	}

	go dispatcher.Run(ctx)
	if err := engine.AutoResumeAll(ctx); err != nil {
		logger.Errorf("Failed to auto-resume batches: %s", err)
	}

	logger.Info("TopicDex Bot is up")
	<-ctx.Done()
	logger.Info("Shutting down")
}
