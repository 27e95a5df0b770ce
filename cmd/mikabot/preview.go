package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mikabot/internal/card"
	"mikabot/internal/config"
	"mikabot/internal/domain"
	"mikabot/internal/scraper"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <url>",
		Short: "Extract a link preview and print the composed card as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configDir(cmd))
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			log := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			author, _ := cmd.Flags().GetString("author")

			prober := scraper.NewHTTPProber(cfg.ProbeTimeout, log)
			extractor := scraper.NewHTTPExtractor(cfg.FetchTimeout, prober, log)
			meta, err := extractor.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			preview := card.NewComposer(cfg.FillerPhrases).Compose(meta, domain.PresentationContext{
				AuthorDisplayName: author,
				IsDirectMessage:   true,
			})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(preview)
		},
	}
	cmd.Flags().String("author", "you", "Display name shown in the card footer.")
	return cmd
}
