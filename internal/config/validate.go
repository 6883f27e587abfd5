package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	for name, prefix := range map[string]string{
		"site.index_path":        cfg.Site.IndexPath,
		"site.article_prefix":    cfg.Site.ArticlePrefix,
		"site.special_prefix":    cfg.Site.SpecialPrefix,
		"site.pagination_prefix": cfg.Site.PaginationPrefix,
	} {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("%s must start with '/', got %q", name, prefix)
		}
	}
	if !strings.HasPrefix(cfg.Site.SpecialPrefix, cfg.Site.ArticlePrefix) {
		return fmt.Errorf("site.special_prefix %q must live under site.article_prefix %q",
			cfg.Site.SpecialPrefix, cfg.Site.ArticlePrefix)
	}

	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > 64 {
		return fmt.Errorf("engine.concurrency must be <= 64, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.DiscoveryConcurrency < 1 {
		return fmt.Errorf("engine.discovery_concurrency must be >= 1, got %d", cfg.Engine.DiscoveryConcurrency)
	}
	if cfg.Engine.RequestsPerSecond <= 0 {
		return fmt.Errorf("engine.requests_per_second must be > 0, got %v", cfg.Engine.RequestsPerSecond)
	}
	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}
	if cfg.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.RetryDelay < 0 {
		return fmt.Errorf("engine.retry_delay must be >= 0")
	}
	if cfg.Engine.MaxSegmentPages < 0 {
		return fmt.Errorf("engine.max_segment_pages must be >= 0, got %d", cfg.Engine.MaxSegmentPages)
	}
	if cfg.Engine.StorageFaultThreshold < 1 {
		return fmt.Errorf("engine.storage_fault_threshold must be >= 1, got %d", cfg.Engine.StorageFaultThreshold)
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.IndexSettleDelay < 0 || cfg.Fetcher.ArticleSettleDelay < 0 {
		return fmt.Errorf("fetcher settle delays must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Parser.Engine != "css" && cfg.Parser.Engine != "xpath" {
		return fmt.Errorf("parser.engine must be 'css' or 'xpath', got %q", cfg.Parser.Engine)
	}

	if cfg.Checkpoint.Dir == "" {
		return fmt.Errorf("checkpoint.dir must not be empty")
	}
	if cfg.Checkpoint.URLListFile == "" {
		return fmt.Errorf("checkpoint.url_list_file must not be empty")
	}
	if cfg.Checkpoint.Backend != "file" && cfg.Checkpoint.Backend != "badger" {
		return fmt.Errorf("checkpoint.backend must be 'file' or 'badger', got %q", cfg.Checkpoint.Backend)
	}

	switch cfg.Storage.Type {
	case "file", "mongo", "both":
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: file, mongo, both)", cfg.Storage.Type)
	}
	if cfg.Storage.Type != "mongo" && cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	if cfg.Storage.Type != "file" &&
		(cfg.Storage.MongoURI == "" || cfg.Storage.MongoDatabase == "" || cfg.Storage.MongoCollection == "") {
		return fmt.Errorf("storage.mongo_uri, mongo_database and mongo_collection are required for mongo storage")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Addr == "" {
			return fmt.Errorf("metrics.addr must not be empty when metrics are enabled")
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
		}
		if cfg.Metrics.Path == "/health" {
			return fmt.Errorf("metrics.path %q is reserved for the health check", cfg.Metrics.Path)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
