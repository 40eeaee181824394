package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LouYuanbo1/journalcrawler/param"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingBaseURL         = errors.New("journal.base_url is required")
	ErrInvalidBackend         = errors.New("render.backend must be 'chromedp' or 'rod'")
	ErrInvalidIssueOrder      = errors.New("traversal.issue_order must be 'oldest_first' or 'listing'")
	ErrInvalidWaitTimeout     = errors.New("traversal.wait_timeout_millis must be positive")
	ErrInvalidCookieSelection = errors.New("assets.cookie_selection must be 'first' or 'named'")
	ErrMissingCookieName      = errors.New("assets.cookie_name is required when cookie_selection is 'named'")
	ErrInvalidConcurrency     = errors.New("assets.concurrency must be at least 1")
	ErrMissingOutputPath      = errors.New("output.path is required")
	ErrInvalidOutputFormat    = errors.New("output.path must end in .xlsx, .csv or .md")
	ErrInvalidLogLevel        = errors.New("log.level must be one of: debug, info, warn, error")
)

const (
	BackendChromedp = "chromedp"
	BackendRod      = "rod"

	CookieSelectionFirst = "first"
	CookieSelectionNamed = "named"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"
)

// LoadConfig 按扩展名选择解析器,.yaml/.yml 走 yaml,其余按 json5 处理
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLConfig(data)
	default:
		return ParseConfig(data)
	}
}

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json5.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

func ParseYAMLConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := yaml.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Journal.Institution == "" {
		c.Journal.Institution = "Bar-Ilan University"
	}
	if c.Journal.LoginWaitSeconds <= 0 {
		c.Journal.LoginWaitSeconds = 60
	}
	if c.Traversal.WaitTimeoutMillis == 0 {
		c.Traversal.WaitTimeoutMillis = 1000
	}
	if c.Traversal.IssueOrder == "" {
		c.Traversal.IssueOrder = param.IssueOrderOldestFirst
	}
	if c.Traversal.ScrollPauseMillis <= 0 {
		c.Traversal.ScrollPauseMillis = 500
	}
	if c.Render.Backend == "" {
		c.Render.Backend = BackendChromedp
	}
	if c.Render.TokenBackend == "" {
		c.Render.TokenBackend = c.Render.Backend
	}
	if c.Chromedp.UserAgent == "" {
		c.Chromedp.UserAgent = DefaultUserAgent
	}
	if c.Rod.UserAgent == "" {
		c.Rod.UserAgent = DefaultUserAgent
	}
	if c.Assets.ImageRoot == "" {
		c.Assets.ImageRoot = "images"
	}
	if c.Assets.CookieHeaderName == "" {
		c.Assets.CookieHeaderName = "__cf_bm"
	}
	if c.Assets.CookieSelection == "" {
		c.Assets.CookieSelection = CookieSelectionFirst
	}
	if c.Assets.UserAgent == "" {
		c.Assets.UserAgent = DefaultUserAgent
	}
	if c.Assets.ChunkSize <= 0 {
		c.Assets.ChunkSize = 8192
	}
	if c.Assets.Concurrency == 0 {
		c.Assets.Concurrency = 1
	}
	if c.Assets.TimeoutSeconds <= 0 {
		c.Assets.TimeoutSeconds = 60
	}
	if c.Genderize.Endpoint == "" {
		c.Genderize.Endpoint = "https://api.genderize.io"
	}
	if c.Genderize.UserAgent == "" {
		c.Genderize.UserAgent = DefaultUserAgent
	}
	if c.Output.Path == "" {
		c.Output.Path = "output.xlsx"
	}
	if c.Output.Sheet == "" {
		c.Output.Sheet = "Sheet1"
	}
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = "journal_articles"
	}
	if c.Embedder.BatchSize <= 0 {
		c.Embedder.BatchSize = 16
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// 相对路径统一转成绝对路径
func (c *Config) resolvePaths() error {
	paths := []*string{
		&c.Chromedp.UserDataDir,
		&c.Rod.UserDataDir,
		&c.Assets.ImageRoot,
		&c.Output.Path,
		&c.Output.JournalDB,
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		absPath, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve path %s: %w", *p, err)
		}
		*p = absPath
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Journal.BaseURL == "" {
		return ErrMissingBaseURL
	}
	for _, backend := range []string{c.Render.Backend, c.Render.TokenBackend} {
		if backend != BackendChromedp && backend != BackendRod {
			return fmt.Errorf("%w: got %q", ErrInvalidBackend, backend)
		}
	}
	if !c.Traversal.IssueOrder.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidIssueOrder, c.Traversal.IssueOrder)
	}
	if c.Traversal.WaitTimeoutMillis < 0 {
		return ErrInvalidWaitTimeout
	}
	switch c.Assets.CookieSelection {
	case CookieSelectionFirst:
	case CookieSelectionNamed:
		if c.Assets.CookieName == "" {
			return ErrMissingCookieName
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCookieSelection, c.Assets.CookieSelection)
	}
	if c.Assets.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}
	switch strings.ToLower(filepath.Ext(c.Output.Path)) {
	case ".xlsx", ".csv", ".md":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutputFormat, c.Output.Path)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Log.Level)
	}
	return nil
}
