package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mikabot",
		Short:        "Mika, a chat bot that previews links and chats with a celestial sparkle",
		SilenceUsage: true,
		// Running the bare binary starts the bot.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir(cmd))
		},
	}

	cmd.PersistentFlags().String("config-dir", "./configs", "Directory holding an optional config.yaml.")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPreviewCmd())
	return cmd
}

func configDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("config-dir")
	if err != nil || dir == "" {
		return "./configs"
	}
	return dir
}
