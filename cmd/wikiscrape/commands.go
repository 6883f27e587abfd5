package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wikiscrape/internal/checkpoint"
	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/engine"
	"github.com/IshaanNene/wikiscrape/internal/fetcher"
	"github.com/IshaanNene/wikiscrape/internal/observability"
	"github.com/IshaanNene/wikiscrape/internal/parser"
	"github.com/IshaanNene/wikiscrape/internal/storage"
	"github.com/IshaanNene/wikiscrape/internal/types"
	"github.com/IshaanNene/wikiscrape/internal/wiki"
)

// siteFlags are the overrides shared by every command that talks to the wiki.
type siteFlags struct {
	baseURL     string
	fetcherType string
	parserName  string
	concurrency int
}

func (f *siteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "wiki base URL (default from config)")
	cmd.Flags().StringVar(&f.fetcherType, "fetcher", "", "fetcher: browser or http")
	cmd.Flags().StringVar(&f.parserName, "parser", "", "parser engine: css or xpath")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "n", 0, "number of concurrent workers")
}

func (f *siteFlags) apply(cfg *config.Config) {
	if f.baseURL != "" {
		cfg.Site.BaseURL = f.baseURL
	}
	if f.fetcherType != "" {
		cfg.Fetcher.Type = f.fetcherType
	}
	if f.parserName != "" {
		cfg.Parser.Engine = f.parserName
	}
	if f.concurrency > 0 {
		cfg.Engine.Concurrency = f.concurrency
		cfg.Engine.DiscoveryConcurrency = f.concurrency
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	var (
		sf        siteFlags
		fresh     bool
		output    string
		storeType string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover every article and save it",
		Long: `Crawl walks the AllPages index, saves the URL list, then extracts every
article not already completed by a previous run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				sf.apply(cfg)
				if fresh {
					cfg.Checkpoint.Resume = false
				}
				if output != "" {
					cfg.Storage.OutputDir = output
				}
				if storeType != "" {
					cfg.Storage.Type = storeType
				}
			})
			if err != nil {
				return err
			}
			return runCrawl(cmd, cfg)
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard checkpoint state and start over")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory for article JSON")
	cmd.Flags().StringVar(&storeType, "storage", "", "storage backend: file, mongo or both")
	return cmd
}

func runCrawl(cmd *cobra.Command, cfg *config.Config) error {
	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the fetcher comes first: if it cannot start, no checkpoint state is touched
	site, err := buildSite(cfg, logger)
	if err != nil {
		return err
	}

	ckpt, err := checkpoint.NewStore(cfg.Checkpoint, logger)
	if err != nil {
		site.Fetcher.Close()
		return fmt.Errorf("open checkpoint: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		site.Fetcher.Close()
		return fmt.Errorf("create storage: %w", err)
	}

	runner := engine.NewRunner(cfg, site, ckpt, store, logger)
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(logger)
		runner.RegisterMetrics(metrics)
		if p, ok := site.Fetcher.(*fetcher.Polite); ok {
			metrics.Register("fetch_attempts_total", "Fetch attempts including retries", observability.Counter, p.Attempts)
			metrics.Register("fetch_retries_total", "Fetch retries", observability.Counter, p.Retries)
		}
		if err := metrics.Start(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metrics.Shutdown(sctx)
		}()
	}

	sum, err := runner.Run(ctx)

	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "\nCrawl interrupted after %s; run again to resume.\n", sum.Elapsed.Round(time.Millisecond))
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "\nCrawl complete in %s\n", sum.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "   Articles:  %d total, %d already complete\n", sum.Total, sum.AlreadyComplete)
	fmt.Fprintf(out, "   This run:  %d attempted, %d saved, %d skipped, %d failed\n",
		sum.Attempted, sum.Succeeded, sum.Skipped, sum.Failed)
	if sum.Remaining > 0 {
		fmt.Fprintf(out, "   Remaining: %d\n", sum.Remaining)
	}
	if cfg.Storage.Type != "mongo" {
		fmt.Fprintf(out, "   Output:    %s\n", cfg.Storage.OutputDir)
	}
	return nil
}

// linksCmd creates the "links" subcommand: discovery only.
func linksCmd() *cobra.Command {
	var (
		sf        siteFlags
		printURLs bool
	)

	cmd := &cobra.Command{
		Use:   "links",
		Short: "Collect article links and save the URL list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(sf.apply)
			if err != nil {
				return err
			}
			logger, closeLog, err := setupLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			site, err := buildSite(cfg, logger)
			if err != nil {
				return err
			}
			defer site.Fetcher.Close()

			ckpt, err := checkpoint.NewStore(cfg.Checkpoint, logger)
			if err != nil {
				return fmt.Errorf("open checkpoint: %w", err)
			}

			collector := wiki.NewLinkCollector(site,
				wiki.NewSegmentDiscoverer(site, logger),
				wiki.NewSegmentCrawler(site, cfg.Engine.MaxSegmentPages, logger),
				ckpt,
				cfg.Engine.DiscoveryConcurrency,
				logger,
			)
			front, err := collector.Collect(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if printURLs {
				for _, u := range front.Sorted() {
					fmt.Fprintln(out, u)
				}
				return nil
			}
			fmt.Fprintf(out, "%d article links saved to %s\n", front.Len(), ckpt.FrontierPath())
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&printURLs, "print", false, "print the URLs to stdout instead of a count")
	return cmd
}

// articleCmd creates the "article" subcommand: extract one page.
func articleCmd() *cobra.Command {
	var (
		sf   siteFlags
		save bool
	)

	cmd := &cobra.Command{
		Use:   "article <url-or-path>",
		Short: "Extract a single article and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(sf.apply)
			if err != nil {
				return err
			}
			logger, closeLog, err := setupLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			site, err := buildSite(cfg, logger)
			if err != nil {
				return err
			}
			defer site.Fetcher.Close()

			link, ok := site.Normalizer.NormalizeArticle(args[0])
			if !ok {
				return fmt.Errorf("%q is not an article on %s: %w", args[0], cfg.Site.BaseURL, types.ErrInvalidURL)
			}

			ctx := cmd.Context()
			rec, err := wiki.NewArticleExtractor(site, logger).Extract(ctx, link.URL)
			if err != nil {
				return err
			}

			if save {
				store, err := storage.New(ctx, cfg.Storage, logger)
				if err != nil {
					return fmt.Errorf("create storage: %w", err)
				}
				defer store.Close()
				if err := store.Write(ctx, rec); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "also write the record to the configured storage")
	return cmd
}

// buildSite creates the fetcher and parser and binds them to the wiki layout.
func buildSite(cfg *config.Config, logger *slog.Logger) (*wiki.Site, error) {
	p, err := parser.New(cfg.Parser.Engine)
	if err != nil {
		return nil, err
	}
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	site, err := wiki.NewSite(cfg, f, p, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	return site, nil
}
