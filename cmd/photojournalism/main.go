// Package main provides the photojournalism service and CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-photojournalism/internal/app"
	"github.com/samvad-hq/samvad-photojournalism/internal/config"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/pkg/feeds"
	"github.com/samvad-hq/samvad-photojournalism/pkg/httpclient"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "photojournalism",
		Short:        "Serve a shuffled stream of news photos",
		Long:         "Photojournalism pulls the best photo out of every item of a list of RSS and Atom feeds and serves them as a shuffled, paginated stream.",
		Version:      config.Version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("photojournalism version {{.Version}}\n")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// newServeCmd runs the refresher and HTTP server until SIGINT or SIGTERM.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh feeds in the background and serve the photo stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := serve(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "photojournalism start failed: %v\n", err)
				return err
			}
			return nil
		},
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("photojournalism starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize service", "error", err.Error())
		return err
	}

	if err := service.Run(ctx); err != nil {
		return fmt.Errorf("service run: %w", err)
	}
	return nil
}

// newExtractCmd prints the photos of one feed, read from a URL or a file.
func newExtractCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "extract <url|file>",
		Short: "Print the photos extracted from one feed as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readSource(cmd.Context(), args[0], timeout)
			if err != nil {
				return err
			}
			items, err := feeds.Decode(body)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			photos := extractor.ExtractAll(items)
			fmt.Fprintln(cmd.OutOrStdout(), domain.PageJSON(photos))
			fmt.Fprintf(cmd.ErrOrStderr(), "%d items, %d photos\n", len(items), len(photos))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "HTTP timeout when the source is a URL")
	return cmd
}

func readSource(ctx context.Context, src string, timeout time.Duration) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(os.Stdin)
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		body, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		return body, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	client := httpclient.NewRestyClient(timeout, config.DefaultUserAgent())
	resp, err := client.Get(ctx, src, map[string]string{"Accept": feeds.DefaultAccept})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode())
	}
	return resp.Body(), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "photojournalism version %s\n", config.Version)
		},
	}
}
