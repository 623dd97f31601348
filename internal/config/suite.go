package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Browser drivers
const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

// Environment variables read by LoadSuiteConfig
const (
	EnvBaseURL         = "STORECHECK_BASE_URL"
	EnvDriver          = "STORECHECK_DRIVER"
	EnvHeadless        = "STORECHECK_HEADLESS"
	EnvDefaultEmail    = "STORECHECK_DEFAULT_EMAIL"
	EnvDefaultPassword = "STORECHECK_DEFAULT_PASSWORD"
	EnvInvalidEmail    = "STORECHECK_INVALID_EMAIL"
	EnvInvalidPassword = "STORECHECK_INVALID_PASSWORD"
)

// Viewport is the browser window size
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Timeouts groups the wait budgets used by the command layer
type Timeouts struct {
	// Command is the default budget for resolving an element that is expected to exist
	Command time.Duration `yaml:"command"`
	// PageLoad bounds a single navigation
	PageLoad time.Duration `yaml:"page_load"`
	// Structural bounds the wait for precondition elements such as the login form
	Structural time.Duration `yaml:"structural"`
	// Submit bounds the search for a submit control before falling back to Enter
	Submit time.Duration `yaml:"submit"`
	// Alert bounds the wait for asynchronous UI feedback such as error alerts
	Alert time.Duration `yaml:"alert"`
	// Poll is the interval between resolution passes while waiting
	Poll time.Duration `yaml:"poll"`
}

// Artifacts controls what the runner records for each attempt
type Artifacts struct {
	Dir                 string `yaml:"dir"`
	ScreenshotOnFailure bool   `yaml:"screenshot_on_failure"`
	Video               bool   `yaml:"video"`
}

// SuiteConfig holds everything the acceptance suite needs to drive a storefront.
// Credentials are never read from the suite file, only from the environment.
type SuiteConfig struct {
	BaseURL         string    `yaml:"base_url"`
	Driver          string    `yaml:"driver"`
	Headless        bool      `yaml:"headless"`
	Stealth         bool      `yaml:"stealth"`
	NoSandbox       bool      `yaml:"no_sandbox"`
	InstallBrowsers bool      `yaml:"install_browsers"`
	Viewport        Viewport  `yaml:"viewport"`
	Timeouts        Timeouts  `yaml:"timeouts"`
	Retries         int       `yaml:"retries"`
	Artifacts       Artifacts `yaml:"artifacts"`
	FixturesPath    string    `yaml:"fixtures"`
	BannerSelectors []string  `yaml:"banner_selectors"`
	ErrorIndicators []string  `yaml:"error_indicators"`
	// Product is the catalog item the browsing scenarios search for and open
	Product string `yaml:"product"`
	// Schedule is the cron expression used by watch mode
	Schedule string `yaml:"schedule"`

	DefaultCredentials Credentials `yaml:"-"`
	InvalidCredentials Credentials `yaml:"-"`
}

// DefaultSuiteConfig returns the built-in suite defaults
func DefaultSuiteConfig() *SuiteConfig {
	return &SuiteConfig{
		BaseURL:  "https://demo.codenbox.com",
		Driver:   DriverPlaywright,
		Headless: true,
		Viewport: Viewport{Width: 1280, Height: 720},
		Timeouts: Timeouts{
			Command:    8 * time.Second,
			PageLoad:   30 * time.Second,
			Structural: 10 * time.Second,
			Submit:     2 * time.Second,
			Alert:      5 * time.Second,
			Poll:       100 * time.Millisecond,
		},
		Retries: 2,
		Artifacts: Artifacts{
			Dir:                 "artifacts",
			ScreenshotOnFailure: true,
			Video:               true,
		},
		FixturesPath: "fixtures/example.json",
		Product:      "iPhone",
		Schedule:     "@every 30m",
	}
}

// LoadSuiteConfig builds the suite configuration from defaults, an optional YAML suite
// file and the environment, in that order of precedence (environment wins).
func LoadSuiteConfig(getenv func(string) string, path string) (*SuiteConfig, error) {
	cfg := DefaultSuiteConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read suite file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse suite file %s: %w", path, err)
		}
	}

	if v := getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(EnvDriver); v != "" {
		cfg.Driver = v
	}
	if v := getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean: %w", EnvHeadless, err)
		}
		cfg.Headless = headless
	}

	var err error
	cfg.DefaultCredentials, err = loadCredentials(getenv, EnvDefaultEmail, EnvDefaultPassword)
	if err != nil {
		return nil, err
	}
	cfg.InvalidCredentials, err = loadCredentials(getenv, EnvInvalidEmail, EnvInvalidPassword)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the non-credential settings
func (c *SuiteConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q must be an absolute URL", c.BaseURL)
	}

	switch c.Driver {
	case DriverPlaywright, DriverRod:
	default:
		return fmt.Errorf("unknown driver %q (use %s or %s)", c.Driver, DriverPlaywright, DriverRod)
	}

	if c.Product == "" {
		return errors.New("product is required")
	}

	if c.Retries < 0 {
		return errors.New("retries cannot be negative")
	}

	for name, d := range map[string]time.Duration{
		"command":    c.Timeouts.Command,
		"page_load":  c.Timeouts.PageLoad,
		"structural": c.Timeouts.Structural,
		"submit":     c.Timeouts.Submit,
		"alert":      c.Timeouts.Alert,
		"poll":       c.Timeouts.Poll,
	} {
		if d <= 0 {
			return fmt.Errorf("timeout %s must be positive", name)
		}
	}

	return nil
}

// EntryURL returns the storefront URL for an OpenCart-style route
func (c *SuiteConfig) EntryURL(route string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/index.php?route=" + route
}
