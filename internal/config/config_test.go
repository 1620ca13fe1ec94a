package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional; these tests fail otherwise.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default WorkerCount is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.WorkerCount != 10 {
			t.Errorf("expected WorkerCount to be 10, got %d", cfg.WorkerCount)
		}
	})

	t.Run("default PageLimit is unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.PageLimit != -1 {
			t.Errorf("expected PageLimit to be -1, got %d", cfg.PageLimit)
		}
	})

	t.Run("default DrainTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.DrainTimeout != 5*time.Second {
			t.Errorf("expected DrainTimeout to be 5s, got %v", cfg.DrainTimeout)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default BatchSize is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 1 {
			t.Errorf("expected BatchSize to be 1, got %d", cfg.BatchSize)
		}
	})

	t.Run("default Fetcher is http", func(t *testing.T) {
		t.Parallel()
		if cfg.Fetcher != FetcherHTTP {
			t.Errorf("expected Fetcher to be %q, got %q", FetcherHTTP, cfg.Fetcher)
		}
	})

	t.Run("default UseTor is false", func(t *testing.T) {
		t.Parallel()
		if cfg.UseTor {
			t.Error("expected UseTor to be false")
		}
	})

	t.Run("default TorStartupTimeout is 3 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.TorStartupTimeout != 3*time.Minute {
			t.Errorf("expected TorStartupTimeout to be 3m, got %v", cfg.TorStartupTimeout)
		}
	})

	t.Run("default MaxBodySize is 5MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected MaxBodySize to be 5MB, got %d", cfg.MaxBodySize)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults with a seed are valid", modify: func(*Config) {}},
		{name: "positive page limit is valid", modify: func(c *Config) { c.PageLimit = 50 }},
		{name: "json only is valid", modify: func(c *Config) { c.JSONReport = true }},
		{name: "markdown only is valid", modify: func(c *Config) { c.MarkdownReport = true }},
		{name: "colly fetcher is valid", modify: func(c *Config) { c.Fetcher = FetcherColly }},
		{name: "proxy only is valid", modify: func(c *Config) { c.ProxyAddress = "127.0.0.1:9050" }},
		{name: "no seeds", modify: func(c *Config) { c.Seeds = nil }, wantErr: ErrNoSeed},
		{name: "zero page limit", modify: func(c *Config) { c.PageLimit = 0 }, wantErr: ErrInvalidPageLimit},
		{name: "zero workers", modify: func(c *Config) { c.WorkerCount = 0 }, wantErr: ErrInvalidWorkerCount},
		{name: "negative workers", modify: func(c *Config) { c.WorkerCount = -3 }, wantErr: ErrInvalidWorkerCount},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative drain timeout", modify: func(c *Config) { c.DrainTimeout = -time.Second }, wantErr: ErrInvalidDrainTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{
			name:    "json and markdown both enabled",
			modify:  func(c *Config) { c.JSONReport = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "unknown fetcher", modify: func(c *Config) { c.Fetcher = "curl" }, wantErr: ErrUnknownFetcher},
		{
			name:    "proxy and tor both enabled",
			modify:  func(c *Config) { c.ProxyAddress = "127.0.0.1:9050"; c.UseTor = true },
			wantErr: ErrConflictingProxy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Seeds = []string{"http://example.com"}
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com", want: "http://example.com"},
		{in: "  example.com/docs ", want: "http://example.com/docs"},
		{in: "https://example.com/", want: "https://example.com/"},
		{in: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{in: "", wantErr: true},
		{in: "http://", wantErr: true},
		{in: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeSeed(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSeed) {
					t.Errorf("expected ErrInvalidSeed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSeed(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestFileGetSiteConfig tests merging of defaults and site-specific settings.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "default=1", PageLimit: 20},
			Sites:    map[string]SiteConfig{},
		}
		got := cf.GetSiteConfig("unknown.example")
		if got.Cookie != "default=1" || got.PageLimit != 20 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "default=1", PageLimit: 20, Workers: 2},
			Sites: map[string]SiteConfig{
				"example.com": {Cookie: "session=abc", PageLimit: 5},
			},
		}
		got := cf.GetSiteConfig("example.com")
		if got.Cookie != "session=abc" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
		if got.PageLimit != 5 {
			t.Errorf("expected site page limit 5, got %d", got.PageLimit)
		}
		if got.Workers != 2 {
			t.Errorf("expected default workers 2, got %d", got.Workers)
		}
	})

	t.Run("merges headers without mutating defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Headers: map[string]string{"Accept-Language": "en", "X-Shared": "default"}},
			Sites: map[string]SiteConfig{
				"example.com": {Headers: map[string]string{"X-Shared": "site"}},
			},
		}
		got := cf.GetSiteConfig("example.com")
		if got.Headers["Accept-Language"] != "en" || got.Headers["X-Shared"] != "site" {
			t.Errorf("unexpected merged headers: %v", got.Headers)
		}
		if cf.Defaults.Headers["X-Shared"] != "default" {
			t.Error("defaults must not be mutated")
		}
	})

	t.Run("site patterns override defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{IgnorePatterns: []string{"/admin/**"}},
			Sites: map[string]SiteConfig{
				"example.com": {IgnorePatterns: []string{"**.pdf"}, FollowPatterns: []string{"/docs/**"}},
			},
		}
		got := cf.GetSiteConfig("example.com")
		if len(got.IgnorePatterns) != 1 || got.IgnorePatterns[0] != "**.pdf" {
			t.Errorf("unexpected ignore patterns: %v", got.IgnorePatterns)
		}
		if len(got.FollowPatterns) != 1 {
			t.Errorf("unexpected follow patterns: %v", got.FollowPatterns)
		}
	})

	t.Run("host lookup ignores case", func(t *testing.T) {
		t.Parallel()

		cf := &File{Sites: map[string]SiteConfig{"example.com": {Cookie: "a=b"}}}
		if got := cf.GetSiteConfig("Example.COM"); got.Cookie != "a=b" {
			t.Errorf("expected case-insensitive match, got %+v", got)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: SiteConfig{Cookie: "x=y"}}
		if got := cf.GetSiteConfig("example.com"); got.Cookie != "x=y" {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

func TestConfigSiteFor(t *testing.T) {
	t.Parallel()

	t.Run("without config file uses global values", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.PageLimit = 30
		got := cfg.SiteFor("http://example.com")
		if got.PageLimit != 30 || got.Workers != DefaultWorkerCount {
			t.Errorf("unexpected site settings: %+v", got)
		}
	})

	t.Run("config file overrides by seed host", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{
			"example.com": {PageLimit: 3, Workers: 1, Cookie: "s=1"},
		}}
		got := cfg.SiteFor("https://example.com:8443/start")
		if got.PageLimit != 3 || got.Workers != 1 || got.Cookie != "s=1" {
			t.Errorf("unexpected site settings: %+v", got)
		}

		other := cfg.SiteFor("http://other.com")
		if other.PageLimit != DefaultPageLimit || other.Cookie != "" {
			t.Errorf("unexpected settings for unconfigured host: %+v", other)
		}
	})
}

// TestLoadConfigFile tests loading YAML configuration files.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		content := `defaults:
  workers: 4
  headers:
    Accept-Language: en
sites:
  Example.COM:
    cookie: "session=abc"
    pageLimit: 25
    ignorePatterns:
      - "/logout"
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Defaults.Workers != 4 {
			t.Errorf("expected default workers 4, got %d", cf.Defaults.Workers)
		}
		site, ok := cf.Sites["example.com"]
		if !ok {
			t.Fatalf("expected lower-cased site key, got %v", cf.Sites)
		}
		if site.Cookie != "session=abc" || site.PageLimit != 25 {
			t.Errorf("unexpected site config: %+v", site)
		}
		if len(site.IgnorePatterns) != 1 || site.IgnorePatterns[0] != "/logout" {
			t.Errorf("unexpected ignore patterns: %v", site.IgnorePatterns)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("expected parse error, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte("defaults:\n  cookie: a=b\n"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites to be initialized")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte(""), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %s", got)
		}
	})
}

func TestConfigLoadSiteConfigs(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing.yaml")
		if err := cfg.LoadSiteConfigs(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit path is loaded", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "site.yaml")
		if err := os.WriteFile(path, []byte("sites:\n  example.com:\n    workers: 2\n"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		cfg := NewConfig()
		cfg.ConfigFilePath = path
		if err := cfg.LoadSiteConfigs(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SiteFor("http://example.com").Workers != 2 {
			t.Error("expected site workers to be loaded")
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if !strings.HasSuffix(dir, AppName) {
				t.Errorf("expected %s dir to end with %s, got %s", name, AppName, dir)
			}
		})
	}
}
