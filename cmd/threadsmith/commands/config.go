package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/services/collector"
	"threadsmith-backend/services/exporter"
)

type ScrapeConfig struct {
	MaxPosts          int   `json:"max_posts"`
	MinLikes          int64 `json:"min_likes"`
	ExcludeImagePosts bool  `json:"exclude_image_posts"`
	Headless          bool  `json:"headless"`
	// CookiesDir stores per-account browser cookies between runs.
	CookiesDir string `json:"cookies_dir"`
}

type Config struct {
	Targets []collector.Target `json:"targets"`
	Scrape  ScrapeConfig       `json:"scrape"`
	// DataDir is the root for raw scrape output.
	DataDir string `json:"data_dir"`
	// OutputDir is the root for final post CSVs.
	OutputDir string `json:"output_dir"`
	Retention int    `json:"retention"`
	Database  string `json:"database"`
	// Report enables the emailed run summary when present.
	Report *exporter.SmtpConfig `json:"report"`
}

func (c Config) validate() error {
	seen := map[string]bool{}
	for _, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("config contains a target with an empty name")
		}
		if seen[target.Name] {
			return fmt.Errorf("duplicate target name '%s'", target.Name)
		}
		seen[target.Name] = true
	}
	if c.Scrape.MaxPosts < 0 {
		return fmt.Errorf("scrape.max_posts must not be negative")
	}
	if c.Scrape.MinLikes < 0 {
		return fmt.Errorf("scrape.min_likes must not be negative")
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	return nil
}

func loadConfig() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("threadsmith.json5")
	if err != nil {
		slog.Warn("could not read threadsmith.json5, using the default target", "err", err)
		cfg = Config{
			Targets: []collector.Target{{Name: "一般ユーザー"}},
		}
	}
	if len(cfg.Targets) == 0 {
		slog.Warn("config has no targets, using the default target")
		cfg.Targets = []collector.Target{{Name: "一般ユーザー"}}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.DataDir, "output-post")
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.DataDir, "threadsmith.db")
	}

	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
