package cmd

import (
	"log"

	"github.com/ElementGang/Nineveh/nineveh"
	"github.com/spf13/cobra"
)

var (
	runCmd = &cobra.Command{
		Use:   "run [flags]",
		Short: "Starts the Nineveh bot and (optionally) the webhook server",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			bot, err := nineveh.New(cfg)
			if err != nil {
				log.Fatalf("error creating nineveh: %s", err.Error())
			}

			if err = bot.Run(ctx); err != nil {
				log.Fatalf("error running nineveh: %s", err.Error())
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
}
