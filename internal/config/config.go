package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "MORSEL_CONFIG"
	defaultPath   = "config.yaml"
)

// Config is built once at startup and handed to every component constructor.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Timezone string         `yaml:"timezone"`
	Logging  LoggingConfig  `yaml:"logging"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
	Poll     PollConfig     `yaml:"poll"`
	Extract  ExtractConfig  `yaml:"extract"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Queue    QueueConfig    `yaml:"queue"`
	LLM      LLMConfig      `yaml:"llm"`
	Digest   DigestConfig   `yaml:"digest"`
	TTS      TTSConfig      `yaml:"tts"`
	Storage  StorageConfig  `yaml:"storage"`
	Podcast  PodcastConfig  `yaml:"podcast"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
	Retry    RetryConfig    `yaml:"retry"`
	location *time.Location `yaml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// MailboxConfig points at the AgentMail inbox that receives links.
type MailboxConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Inbox   string `yaml:"inbox"`
	Limit   int    `yaml:"limit"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ExtractConfig holds the URL noise filters.
type ExtractConfig struct {
	Ignore         []string `yaml:"ignore"`
	SkipExtensions []string `yaml:"skip_extensions"`
}

// ScraperConfig selects the article extraction backend.
type ScraperConfig struct {
	Backend   string        `yaml:"backend"` // reader or readability
	ReaderURL string        `yaml:"reader_url"`
	ReaderKey string        `yaml:"reader_key"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	NoCache   bool          `yaml:"no_cache"`
	RedisAddr string        `yaml:"redis_addr"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// QueueConfig selects where article bodies are stored.
type QueueConfig struct {
	ContentStore string `yaml:"content_store"` // fs or badger
	BadgerDir    string `yaml:"badger_dir"`
}

type LLMConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type DigestConfig struct {
	MaxArticleChars int `yaml:"max_article_chars"`
}

// TTSConfig targets an OpenAI-compatible /audio/speech endpoint.
type TTSConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Voice         string        `yaml:"voice"`
	MaxChunkChars int           `yaml:"max_chunk_chars"`
	Timeout       time.Duration `yaml:"timeout"`
	BitrateKbps   int           `yaml:"bitrate_kbps"`
}

// StorageConfig describes the object store. An empty Bucket selects the local
// directory store under DataDir/public.
type StorageConfig struct {
	Endpoint          string `yaml:"endpoint"`
	Bucket            string `yaml:"bucket"`
	AccessKeyID       string `yaml:"access_key_id"`
	SecretAccessKey   string `yaml:"secret_access_key"`
	Region            string `yaml:"region"`
	UseSSL            bool   `yaml:"use_ssl"`
	PublicURL         string `yaml:"public_url"`
	LocalDir          string `yaml:"local_dir"`
	RetentionDays     int    `yaml:"retention_days"`
	FeedCacheControl  string `yaml:"feed_cache_control"`
	FeedRetentionDays int    `yaml:"feed_retention_days"`
}

type PodcastConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Language    string `yaml:"language"`
	ImageURL    string `yaml:"image_url"`
}

type NotifyConfig struct {
	NtfyTopic string        `yaml:"ntfy_topic"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RetryConfig is the transient-failure policy shared by the HTTP collaborators.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// Load reads the YAML file at path (or MORSEL_CONFIG, or ./config.yaml when present)
// on top of Default and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := os.Getenv(configPathEnv); v != "" {
			path = v
			explicit = true
		} else {
			path = defaultPath
		}
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults + env only
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	// later entries win, so AGENTMAIL_INBOX beats AGENTMAIL_EMAIL_ADDRESS
	overrides := []struct {
		env   string
		field *string
	}{
		{"AGENTMAIL_API_KEY", &c.Mailbox.APIKey},
		{"AGENTMAIL_EMAIL_ADDRESS", &c.Mailbox.Inbox},
		{"AGENTMAIL_INBOX", &c.Mailbox.Inbox},
		{"ANTHROPIC_API_KEY", &c.LLM.APIKey},
		{"TTS_API_KEY", &c.TTS.APIKey},
		{"STORAGE_ACCESS_KEY_ID", &c.Storage.AccessKeyID},
		{"STORAGE_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey},
		{"MORSEL_DATA_DIR", &c.DataDir},
		{"REDIS_ADDR", &c.Scraper.RedisAddr},
		{"NTFY_TOPIC", &c.Notify.NtfyTopic},
		{"JINA_API_KEY", &c.Scraper.ReaderKey},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.field = v
		}
	}
}

func (c *Config) normalize() error {
	c.DataDir = expandHome(strings.TrimSpace(c.DataDir))
	if c.DataDir == "" {
		c.DataDir = Default().DataDir
	}
	if c.Queue.BadgerDir == "" {
		c.Queue.BadgerDir = filepath.Join(c.DataDir, "content")
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = filepath.Join(c.DataDir, "public")
	}
	c.Storage.PublicURL = strings.TrimRight(c.Storage.PublicURL, "/")
	if c.Storage.PublicURL == "" && !c.RemoteStorage() {
		// the local store is published by `morsel serve`
		c.Storage.PublicURL = localURL(c.Server.Addr)
	}

	tz := c.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", tz, err)
	}
	c.location = loc

	switch c.Scraper.Backend {
	case "reader", "readability":
	default:
		return fmt.Errorf("config: unknown scraper backend %q", c.Scraper.Backend)
	}
	switch c.Queue.ContentStore {
	case "fs", "badger":
	default:
		return fmt.Errorf("config: unknown queue content store %q", c.Queue.ContentStore)
	}
	return nil
}

// Location is the timezone used to pick "today" and "yesterday".
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// ValidateMailbox checks what the poller needs.
func (c *Config) ValidateMailbox() error {
	var missing []string
	if c.Mailbox.APIKey == "" {
		missing = append(missing, "mailbox.api_key (AGENTMAIL_API_KEY)")
	}
	if c.Mailbox.Inbox == "" {
		missing = append(missing, "mailbox.inbox (AGENTMAIL_INBOX)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateDigest checks what compose needs, plus what publishing needs when publish is set.
func (c *Config) ValidateDigest(publish bool) error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key (ANTHROPIC_API_KEY)")
	}
	if publish && c.TTS.APIKey == "" {
		missing = append(missing, "tts.api_key (TTS_API_KEY)")
	}
	if publish && c.Storage.PublicURL == "" {
		missing = append(missing, "storage.public_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// RemoteStorage reports whether an S3-compatible bucket is configured.
func (c *Config) RemoteStorage() bool {
	return c.Storage.Bucket != ""
}

// localURL turns a listen address into an absolute base URL; a bare ":port"
// is served on localhost.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
