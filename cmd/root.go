package cmd

import (
	"context"
	"fmt"

	"github.com/krau/TopicDex-Bot/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "topicdex-bot",
	Short: "Organize Telegram channel posts into forum topics",
	Run:   Run,
}

func init() {
	config.RegisterFlags(rootCmd)
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
	}
}
