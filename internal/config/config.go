// Package config loads notifier settings from a TOML file and NOTIFIER_*
// environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/ports"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "notifier.toml"
	EnvPrefix   = "NOTIFIER"

	// SecretScheme marks a value that is looked up in the secret store.
	SecretScheme = "secret://"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Org      string   `mapstructure:"org"`
	GitHub   GitHub   `mapstructure:"github"`
	Delivery Delivery `mapstructure:"delivery"`
	Poll     Poll     `mapstructure:"poll"`
	OAuth    OAuth    `mapstructure:"oauth"`
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Secrets  Secrets  `mapstructure:"secrets"`
	Log      Log      `mapstructure:"log"`
}

type GitHub struct {
	Token    string        `mapstructure:"token"`
	BaseURL  string        `mapstructure:"base_url"`
	MaxPages int           `mapstructure:"max_pages"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Delivery struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Username   string        `mapstructure:"username"`
	IconEmoji  string        `mapstructure:"icon_emoji"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Poll struct {
	Interval     time.Duration `mapstructure:"interval"`
	RunOnStart   bool          `mapstructure:"run_on_start"`
	Timezone     string        `mapstructure:"timezone"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

type OAuth struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
	AuthorizeURL string   `mapstructure:"authorize_url"`
	APIBaseURL   string   `mapstructure:"api_base_url"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
	// RateLimit is requests per second per client on the install routes.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For
	// header is believed. Empty means the peer address is the client.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// ProxyNetworks parses TrustedProxies. A bare address is a single-host
// network.
func (s Server) ProxyNetworks() ([]*net.IPNet, error) {
	networks := make([]*net.IPNet, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("server.trusted_proxies: invalid address %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: invalid network %q", entry)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

type Storage struct {
	Backend    string `mapstructure:"backend"`
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type Secrets struct {
	Dir     string `mapstructure:"dir"`
	Keyring bool   `mapstructure:"keyring"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads path when it exists and overlays the environment. A missing
// file is only an error when explicit is true.
func Load(path string, explicit bool) (Config, error) {
	v := New()

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || explicit {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return Decode(v)
}

// New returns a viper instance carrying every default and bound to the
// NOTIFIER_* environment.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.OAuth.Scopes = splitList(cfg.OAuth.Scopes)
	cfg.Server.TrustedProxies = splitList(cfg.Server.TrustedProxies)
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.Dir, "notifier.db")
	}
	if cfg.Secrets.Dir == "" {
		cfg.Secrets.Dir = filepath.Join(cfg.Storage.Dir, "secrets")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("org", "")

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.max_pages", 10)
	v.SetDefault("github.timeout", 30*time.Second)

	v.SetDefault("delivery.webhook_url", "")
	v.SetDefault("delivery.username", "GitHub Notification Bot")
	v.SetDefault("delivery.icon_emoji", ":github:")
	v.SetDefault("delivery.timeout", 30*time.Second)

	v.SetDefault("poll.interval", 24*time.Hour)
	v.SetDefault("poll.run_on_start", false)
	v.SetDefault("poll.timezone", "UTC")
	v.SetDefault("poll.cycle_timeout", 10*time.Minute)

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_url", "")
	v.SetDefault("oauth.scopes", []string{"chat:write", "channels:read"})
	v.SetDefault("oauth.authorize_url", "https://slack.com/oauth/v2/authorize")
	v.SetDefault("oauth.api_base_url", "https://slack.com/api")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 0.5)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.sqlite_path", "")

	v.SetDefault("secrets.dir", "")
	v.SetDefault("secrets.keyring", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// splitList accepts both a list and a single comma separated entry, as
// produced by environment overrides.
func splitList(raw []string) []string {
	var items []string
	for _, entry := range raw {
		for item := range strings.SplitSeq(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

func (c Config) Location() (*time.Location, error) {
	if c.Poll.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(c.Poll.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: poll.timezone %q: %w", ErrInvalidConfig, c.Poll.Timezone, err)
	}
	return loc, nil
}

// ResolveSecrets replaces every secret:// value with the stored secret.
func (c *Config) ResolveSecrets(ctx context.Context, store ports.SecretStore) error {
	fields := []struct {
		key   string
		value *string
	}{
		{key: "github.token", value: &c.GitHub.Token},
		{key: "delivery.webhook_url", value: &c.Delivery.WebhookURL},
		{key: "oauth.client_id", value: &c.OAuth.ClientID},
		{key: "oauth.client_secret", value: &c.OAuth.ClientSecret},
	}

	for _, field := range fields {
		ref, ok := strings.CutPrefix(*field.value, SecretScheme)
		if !ok {
			continue
		}
		if store == nil {
			return fmt.Errorf("%w: %s references a secret but no secret store is configured", ErrInvalidConfig, field.key)
		}

		resolved, err := store.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", field.key, err)
		}
		*field.value = resolved
	}

	return nil
}

// LogValue keeps credentials out of logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("org", c.Org),
		slog.String("github_base_url", c.GitHub.BaseURL),
		slog.Bool("github_token_set", c.GitHub.Token != ""),
		slog.Bool("webhook_set", c.Delivery.WebhookURL != ""),
		slog.Duration("poll_interval", c.Poll.Interval),
		slog.Bool("run_on_start", c.Poll.RunOnStart),
		slog.String("timezone", c.Poll.Timezone),
		slog.Bool("oauth_client_set", c.OAuth.ClientID != "" && c.OAuth.ClientSecret != ""),
		slog.String("server_addr", c.Server.Addr),
		slog.String("storage_backend", c.Storage.Backend),
		slog.Bool("keyring", c.Secrets.Keyring),
	)
}

// Purpose selects which settings a command needs.
type Purpose int

const (
	PurposePoll Purpose = iota
	// PurposePreview fetches and renders without delivering.
	PurposePreview
	PurposeServe
	PurposeInstallURL
	PurposeInspect
)

// Validate reports every missing or malformed setting the purpose needs.
func (c Config) Validate(purpose Purpose) error {
	var problems []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, key+" is required")
		}
	}

	if c.Storage.Backend != BackendFile && c.Storage.Backend != BackendSQLite {
		problems = append(problems, fmt.Sprintf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend))
	}

	fetches := purpose == PurposePoll || purpose == PurposeServe || purpose == PurposePreview
	delivers := purpose == PurposePoll || purpose == PurposeServe

	if fetches {
		require("org", c.Org)
		require("github.token", c.GitHub.Token)
		if _, err := c.Location(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if delivers {
		require("delivery.webhook_url", c.Delivery.WebhookURL)
		if c.Delivery.WebhookURL != "" && !isHTTPURL(c.Delivery.WebhookURL) {
			problems = append(problems, "delivery.webhook_url must be an http(s) url")
		}
	}

	if purpose == PurposeServe {
		if c.Poll.Interval <= 0 {
			problems = append(problems, "poll.interval must be positive")
		}
		if _, err := c.Server.ProxyNetworks(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if purpose == PurposeServe || purpose == PurposeInstallURL {
		require("oauth.client_id", c.OAuth.ClientID)
		require("oauth.client_secret", c.OAuth.ClientSecret)
	}

	if purpose == PurposeInstallURL && c.Storage.Backend != BackendSQLite {
		problems = append(problems, "install-url needs storage.backend = \"sqlite\" so the server can consume the state")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
