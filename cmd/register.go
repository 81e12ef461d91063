package cmd

import (
	"log"

	"github.com/ElementGang/Nineveh/nineveh"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Register the bot's slash commands with Discord and exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		bot, err := nineveh.New(cfg)
		if err != nil {
			log.Fatalf("error creating nineveh: %s", err.Error())
		}
		if err = bot.RegisterSlashCommands(cmd.Context()); err != nil {
			log.Fatalf("error registering commands: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
