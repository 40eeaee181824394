package config

import (
	"time"

	"github.com/LouYuanbo1/journalcrawler/param"
)

type Config struct {
	Journal struct {
		BaseURL          string `json:"base_url" yaml:"base_url"`
		LoginURL         string `json:"login_url" yaml:"login_url"`
		Institution      string `json:"institution" yaml:"institution"`
		Email            string `json:"email" yaml:"email"`
		Password         string `json:"password" yaml:"password"`
		LoginWaitSeconds int    `json:"login_wait_seconds" yaml:"login_wait_seconds"`
	} `json:"journal" yaml:"journal"`

	Traversal struct {
		WaitTimeoutMillis int              `json:"wait_timeout_millis" yaml:"wait_timeout_millis"`
		IssueOrder        param.IssueOrder `json:"issue_order" yaml:"issue_order"`
		ScrollTimes       int              `json:"scroll_times" yaml:"scroll_times"`
		ScrollPauseMillis int              `json:"scroll_pause_millis" yaml:"scroll_pause_millis"`
	} `json:"traversal" yaml:"traversal"`

	// 只需要写出与默认值不同的选择器
	Selectors param.Selectors `json:"selectors" yaml:"selectors"`

	Render struct {
		// chromedp 或 rod
		Backend string `json:"backend" yaml:"backend"`
		// 获取下载 token 用的后端,留空时与 Backend 相同
		TokenBackend string `json:"token_backend" yaml:"token_backend"`
	} `json:"render" yaml:"render"`

	Rod struct {
		UserMode             bool   `json:"user_mode" yaml:"user_mode"`
		UserDataDir          string `json:"user_data_dir" yaml:"user_data_dir"`
		Headless             bool   `json:"headless" yaml:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features" yaml:"disable_blink_features"`
		Incognito            bool   `json:"incognito" yaml:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" yaml:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox" yaml:"no_sandbox"`
		UserAgent            string `json:"user_agent" yaml:"user_agent"`
		Leakless             bool   `json:"leakless" yaml:"leakless"`
		Bin                  string `json:"bin" yaml:"bin"`
		Trace                bool   `json:"trace" yaml:"trace"`
		Stealth              bool   `json:"stealth" yaml:"stealth"`
	} `json:"rod" yaml:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time" yaml:"life_time"`
		UserDataDir          string `json:"user_data_dir" yaml:"user_data_dir"`
		Headless             bool   `json:"headless" yaml:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features" yaml:"disable_blink_features"`
		Incognito            bool   `json:"incognito" yaml:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" yaml:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox" yaml:"no_sandbox"`
		UserAgent            string `json:"user_agent" yaml:"user_agent"`
	} `json:"chromedp" yaml:"chromedp"`

	Assets struct {
		Enabled          bool   `json:"enabled" yaml:"enabled"`
		ImageRoot        string `json:"image_root" yaml:"image_root"`
		CookieHeaderName string `json:"cookie_header_name" yaml:"cookie_header_name"`
		CookieSelection  string `json:"cookie_selection" yaml:"cookie_selection"`
		CookieName       string `json:"cookie_name" yaml:"cookie_name"`
		UserAgent        string `json:"user_agent" yaml:"user_agent"`
		ChunkSize        int    `json:"chunk_size" yaml:"chunk_size"`
		Concurrency      int    `json:"concurrency" yaml:"concurrency"`
		TimeoutSeconds   int    `json:"timeout_seconds" yaml:"timeout_seconds"`
		CloudflareBypass bool   `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
	} `json:"assets" yaml:"assets"`

	Genderize struct {
		Endpoint    string `json:"endpoint" yaml:"endpoint"`
		APIKey      string `json:"api_key" yaml:"api_key"`
		UserAgent   string `json:"user_agent" yaml:"user_agent"`
		Delay       int    `json:"delay" yaml:"delay"`
		RandomDelay int    `json:"random_delay" yaml:"random_delay"`
	} `json:"genderize" yaml:"genderize"`

	Output struct {
		Path      string `json:"path" yaml:"path"`
		Sheet     string `json:"sheet" yaml:"sheet"`
		JournalDB string `json:"journal_db" yaml:"journal_db"`
	} `json:"output" yaml:"output"`

	Elasticsearch struct {
		Enabled  bool   `json:"enabled" yaml:"enabled"`
		Username string `json:"username" yaml:"username"`
		Password string `json:"password" yaml:"password"`
		Address  string `json:"address" yaml:"address"`
		Index    string `json:"index" yaml:"index"`
	} `json:"elasticsearch" yaml:"elasticsearch"`

	Embedder struct {
		Enabled   bool   `json:"enabled" yaml:"enabled"`
		Host      string `json:"host" yaml:"host"`
		Port      int    `json:"port" yaml:"port"`
		Model     string `json:"model" yaml:"model"`
		BatchSize int    `json:"batch_size" yaml:"batch_size"`
		Dims      int    `json:"dims" yaml:"dims"`
	} `json:"embedder" yaml:"embedder"`

	Log struct {
		Level string `json:"level" yaml:"level"`
	} `json:"log" yaml:"log"`
}

func (c *Config) TraversalParam() param.Traversal {
	return param.Traversal{
		WaitTimeout: time.Duration(c.Traversal.WaitTimeoutMillis) * time.Millisecond,
		IssueOrder:  c.Traversal.IssueOrder,
		Scroll: param.Scroll{
			ScrollTimes: c.Traversal.ScrollTimes,
			Pause:       time.Duration(c.Traversal.ScrollPauseMillis) * time.Millisecond,
		},
	}
}

// SelectorSet 默认选择器叠加配置文件里的覆盖项
func (c *Config) SelectorSet() param.Selectors {
	return param.DefaultSelectors().Merge(c.Selectors)
}

func (c *Config) LoginWait() time.Duration {
	return time.Duration(c.Journal.LoginWaitSeconds) * time.Second
}

func (c *Config) AssetTimeout() time.Duration {
	return time.Duration(c.Assets.TimeoutSeconds) * time.Second
}

// HasCredentials 配置了账号信息时才走登录流程
func (c *Config) HasCredentials() bool {
	return c.Journal.LoginURL != "" && c.Journal.Email != "" && c.Journal.Password != ""
}
