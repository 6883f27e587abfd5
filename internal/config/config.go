package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for wikiscrape.
type Config struct {
	Site       SiteConfig       `mapstructure:"site"       yaml:"site"`
	Engine     EngineConfig     `mapstructure:"engine"     yaml:"engine"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Parser     ParserConfig     `mapstructure:"parser"     yaml:"parser"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// SiteConfig describes the MediaWiki layout of the target site.
type SiteConfig struct {
	BaseURL          string `mapstructure:"base_url"          yaml:"base_url"`
	IndexPath        string `mapstructure:"index_path"        yaml:"index_path"`
	ArticlePrefix    string `mapstructure:"article_prefix"    yaml:"article_prefix"`
	SpecialPrefix    string `mapstructure:"special_prefix"    yaml:"special_prefix"`
	PaginationPrefix string `mapstructure:"pagination_prefix" yaml:"pagination_prefix"`
}

// IndexURL returns the absolute URL of the root AllPages index.
func (s SiteConfig) IndexURL() string {
	return s.BaseURL + s.IndexPath
}

// EngineConfig controls discovery and extraction scheduling.
type EngineConfig struct {
	Concurrency           int           `mapstructure:"concurrency"             yaml:"concurrency"`
	DiscoveryConcurrency  int           `mapstructure:"discovery_concurrency"   yaml:"discovery_concurrency"`
	RequestsPerSecond     float64       `mapstructure:"requests_per_second"     yaml:"requests_per_second"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"         yaml:"request_timeout"`
	MaxRetries            int           `mapstructure:"max_retries"             yaml:"max_retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"             yaml:"retry_delay"`
	MaxSegmentPages       int           `mapstructure:"max_segment_pages"       yaml:"max_segment_pages"`
	StorageFaultThreshold int           `mapstructure:"storage_fault_threshold" yaml:"storage_fault_threshold"`
	RespectRobotsTxt      bool          `mapstructure:"respect_robots_txt"      yaml:"respect_robots_txt"`
	UserAgent             string        `mapstructure:"user_agent"              yaml:"user_agent"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type               string        `mapstructure:"type"                 yaml:"type"`
	IndexSettleDelay   time.Duration `mapstructure:"index_settle_delay"   yaml:"index_settle_delay"`
	ArticleSettleDelay time.Duration `mapstructure:"article_settle_delay" yaml:"article_settle_delay"`
	MaxBodySize        int64         `mapstructure:"max_body_size"        yaml:"max_body_size"`
	MaxRedirects       int           `mapstructure:"max_redirects"        yaml:"max_redirects"`
	IdleConnTimeout    time.Duration `mapstructure:"idle_conn_timeout"    yaml:"idle_conn_timeout"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"       yaml:"max_idle_conns"`
	Stealth            bool          `mapstructure:"stealth"              yaml:"stealth"`
	BrowserBin         string        `mapstructure:"browser_bin"          yaml:"browser_bin"`
}

// ParserConfig selects the document parser backend.
type ParserConfig struct {
	Engine string `mapstructure:"engine" yaml:"engine"` // css, xpath
}

// CheckpointConfig controls resume state.
type CheckpointConfig struct {
	Dir         string `mapstructure:"dir"           yaml:"dir"`
	Backend     string `mapstructure:"backend"       yaml:"backend"` // file, badger
	URLListFile string `mapstructure:"url_list_file" yaml:"url_list_file"`
	Resume      bool   `mapstructure:"resume"        yaml:"resume"`
	RetryFailed bool   `mapstructure:"retry_failed"  yaml:"retry_failed"`
}

// StorageConfig controls where article records go.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // file, mongo, both
	OutputDir       string `mapstructure:"output_dir"       yaml:"output_dir"`
	Disambiguate    bool   `mapstructure:"disambiguate"     yaml:"disambiguate"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file"   yaml:"file"`
}

// MetricsConfig controls the run progress endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr"    yaml:"addr"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config targeting bg3.wiki with polite, sequential defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:          "https://bg3.wiki",
			IndexPath:        "/wiki/Special:AllPages",
			ArticlePrefix:    "/wiki/",
			SpecialPrefix:    "/wiki/Special:",
			PaginationPrefix: "/wiki/Special:AllPages?from=",
		},
		Engine: EngineConfig{
			Concurrency:           1,
			DiscoveryConcurrency:  1,
			RequestsPerSecond:     1,
			RequestTimeout:        30 * time.Second,
			MaxRetries:            2,
			RetryDelay:            2 * time.Second,
			MaxSegmentPages:       0,
			StorageFaultThreshold: 5,
			RespectRobotsTxt:      false,
			UserAgent:             "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Fetcher: FetcherConfig{
			Type:               "browser",
			IndexSettleDelay:   2 * time.Second,
			ArticleSettleDelay: 1 * time.Second,
			MaxBodySize:        10 * 1024 * 1024, // 10MB
			MaxRedirects:       10,
			IdleConnTimeout:    90 * time.Second,
			MaxIdleConns:       10,
		},
		Parser: ParserConfig{
			Engine: "css",
		},
		Checkpoint: CheckpointConfig{
			Dir:         ".",
			Backend:     "file",
			URLListFile: "wiki_urls.txt",
			Resume:      true,
			RetryFailed: true,
		},
		Storage: StorageConfig{
			Type:            "file",
			OutputDir:       "bg3_wiki_dump",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "wikiscrape",
			MongoCollection: "articles",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "scrape_log.txt",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}
