package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/originesmedia/og-prerender/internal/api"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

// ErrInvalidSlug is returned when --slug is blank.
var ErrInvalidSlug = errors.New("invalid article slug")

func newRenderCommand() *cobra.Command {
	var slug, origin string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the crawler HTML for one article",
		Long: `Render runs the prerender pipeline for a single article and writes the
resulting HTML to stdout. The metadata cache is bypassed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			log, err := createLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if strings.TrimSpace(slug) == "" {
				return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
			}

			if origin == "" {
				origin = cfg.Document.SelfOrigin
			}
			if origin == "" {
				origin = cfg.Site.Origin
			}

			tel := telemetry.NewProvider(prometheus.NewRegistry())
			pipeline := api.NewPipeline(cfg, log, tel, api.NewSanityClient(cfg, tel), nil)

			html, err := pipeline.Render(cmd.Context(), slug, origin)
			if err != nil {
				return fmt.Errorf("render %s: %w", slug, err)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "article slug")
	cmd.Flags().StringVar(&origin, "origin", "", "origin serving index.html (defaults to document.self_origin, then site.origin)")
	_ = cmd.MarkFlagRequired("slug")

	return cmd
}
