package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LouYuanbo1/journalcrawler/param"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
	// comments and trailing commas are fine
	"journal": {"base_url": "https://journals.example.org/loi/abc",},
	"output": {"path": "out/result.csv"},
}`

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalJSON))
	require.NoError(t, err)

	require.Equal(t, BackendChromedp, cfg.Render.Backend)
	require.Equal(t, BackendChromedp, cfg.Render.TokenBackend)
	require.Equal(t, "__cf_bm", cfg.Assets.CookieHeaderName)
	require.Equal(t, CookieSelectionFirst, cfg.Assets.CookieSelection)
	require.Equal(t, 8192, cfg.Assets.ChunkSize)
	require.Equal(t, 1, cfg.Assets.Concurrency)
	require.True(t, filepath.IsAbs(cfg.Output.Path))
	require.True(t, filepath.IsAbs(cfg.Assets.ImageRoot))

	tr := cfg.TraversalParam()
	require.Equal(t, time.Second, tr.WaitTimeout)
	require.Equal(t, param.IssueOrderOldestFirst, tr.IssueOrder)
	require.Equal(t, 60*time.Second, cfg.LoginWait())
	require.False(t, cfg.HasCredentials())
}

func TestParseConfig_SelectorOverride(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"journal": {"base_url": "https://j.example.org"},
		"selectors": {"title": "h1.article-title"}
	}`))
	require.NoError(t, err)

	sel := cfg.SelectorSet()
	require.Equal(t, "h1.article-title", sel.Title)
	require.Equal(t, param.DefaultSelectors().DOI, sel.DOI)
}

func TestParseConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "missing base url", body: `{}`, want: ErrMissingBaseURL},
		{
			name: "bad backend",
			body: `{"journal": {"base_url": "x"}, "render": {"backend": "selenium"}}`,
			want: ErrInvalidBackend,
		},
		{
			name: "bad issue order",
			body: `{"journal": {"base_url": "x"}, "traversal": {"issue_order": "random"}}`,
			want: ErrInvalidIssueOrder,
		},
		{
			name: "named cookie without name",
			body: `{"journal": {"base_url": "x"}, "assets": {"cookie_selection": "named"}}`,
			want: ErrMissingCookieName,
		},
		{
			name: "unknown cookie selection",
			body: `{"journal": {"base_url": "x"}, "assets": {"cookie_selection": "last"}}`,
			want: ErrInvalidCookieSelection,
		},
		{
			name: "negative concurrency",
			body: `{"journal": {"base_url": "x"}, "assets": {"concurrency": -2}}`,
			want: ErrInvalidConcurrency,
		},
		{
			name: "unsupported output",
			body: `{"journal": {"base_url": "x"}, "output": {"path": "out.parquet"}}`,
			want: ErrInvalidOutputFormat,
		},
		{
			name: "bad log level",
			body: `{"journal": {"base_url": "x"}, "log": {"level": "verbose"}}`,
			want: ErrInvalidLogLevel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.body))
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawler.yaml")
	body := `
journal:
  base_url: https://j.example.org
  login_url: https://j.example.org/login
  email: someone@example.org
  password: secret
traversal:
  issue_order: listing
  wait_timeout_millis: 2500
assets:
  cookie_selection: named
  cookie_name: __cf_bm
render:
  backend: rod
  token_backend: chromedp
output:
  path: result.md
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.HasCredentials())
	require.Equal(t, BackendRod, cfg.Render.Backend)
	require.Equal(t, BackendChromedp, cfg.Render.TokenBackend)
	require.Equal(t, param.IssueOrderListing, cfg.TraversalParam().IssueOrder)
	require.Equal(t, 2500*time.Millisecond, cfg.TraversalParam().WaitTimeout)
	require.Equal(t, "__cf_bm", cfg.Assets.CookieName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
