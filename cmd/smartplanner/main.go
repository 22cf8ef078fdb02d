package main

import (
	"context"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "smartplanner",
		Short:        "Telegram task planner with deadline reminders and daily XP",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd(), newResolveCmd())
	return rootCmd
}
