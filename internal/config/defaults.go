package config

import "time"

// Default values. Everything a test may want to pin lives here rather than inline.
const (
	DefaultDataDir         = "./data"
	DefaultMailboxBaseURL  = "https://api.agentmail.to/v0"
	DefaultMailboxLimit    = 10
	DefaultPollInterval    = 60 * time.Second
	DefaultReaderURL       = "https://r.jina.ai/"
	DefaultScrapeTimeout   = 60 * time.Second
	DefaultScrapeCacheTTL  = 72 * time.Hour
	DefaultLLMBaseURL      = "https://api.anthropic.com/v1"
	DefaultLLMModel        = "claude-sonnet-4-20250514"
	DefaultLLMMaxTokens    = 4096
	DefaultLLMTimeout      = 5 * time.Minute
	DefaultMaxArticleChars = 15000
	DefaultTTSBaseURL      = "https://api.openai.com/v1"
	DefaultTTSModel        = "tts-1"
	DefaultVoice           = "en-US-AndrewMultilingualNeural"
	DefaultTTSChunkChars   = 4000
	DefaultTTSBitrateKbps  = 48
	DefaultRetentionDays   = 7
	DefaultFeedCache       = "public, max-age=300"
	DefaultPodcastTitle    = "Morsel"
	DefaultPodcastDesc     = "Daily article digest in bite-sized audio"
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 5 * time.Second
	DefaultServerAddr      = "127.0.0.1:8080"
)

// DefaultIgnore lists URL fragments that mark mail furniture and tracking links.
var DefaultIgnore = []string{
	"agentmail.to",
	"agentmail.cc",
	"mailto:",
	"unsubscribe",
	"manage-preferences",
	"list-manage.com",
	"mailchimp.com",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
}

// DefaultSkipExtensions lists asset suffixes that are never articles.
var DefaultSkipExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js",
}

// Default returns a config with every field at its documented fallback.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		Logging: LoggingConfig{Level: "info", Format: "auto"},
		Mailbox: MailboxConfig{
			BaseURL: DefaultMailboxBaseURL,
			Limit:   DefaultMailboxLimit,
		},
		Poll: PollConfig{Interval: DefaultPollInterval},
		Extract: ExtractConfig{
			Ignore:         append([]string(nil), DefaultIgnore...),
			SkipExtensions: append([]string(nil), DefaultSkipExtensions...),
		},
		Scraper: ScraperConfig{
			Backend:   "reader",
			ReaderURL: DefaultReaderURL,
			Timeout:   DefaultScrapeTimeout,
			CacheTTL:  DefaultScrapeCacheTTL,
			UserAgent: "morsel/1.0",
			NoCache:   true,
		},
		Queue: QueueConfig{ContentStore: "fs"},
		LLM: LLMConfig{
			BaseURL:   DefaultLLMBaseURL,
			Model:     DefaultLLMModel,
			MaxTokens: DefaultLLMMaxTokens,
			Timeout:   DefaultLLMTimeout,
		},
		Digest: DigestConfig{MaxArticleChars: DefaultMaxArticleChars},
		TTS: TTSConfig{
			BaseURL:       DefaultTTSBaseURL,
			Model:         DefaultTTSModel,
			Voice:         DefaultVoice,
			MaxChunkChars: DefaultTTSChunkChars,
			Timeout:       DefaultLLMTimeout,
			BitrateKbps:   DefaultTTSBitrateKbps,
		},
		Storage: StorageConfig{
			Region:           "auto",
			UseSSL:           true,
			RetentionDays:    DefaultRetentionDays,
			FeedCacheControl: DefaultFeedCache,
		},
		Podcast: PodcastConfig{
			Title:       DefaultPodcastTitle,
			Description: DefaultPodcastDesc,
			Author:      DefaultPodcastTitle,
			Language:    "en",
		},
		Notify: NotifyConfig{Timeout: 10 * time.Second},
		Server: ServerConfig{Addr: DefaultServerAddr},
		Retry: RetryConfig{
			Attempts: DefaultRetryAttempts,
			Delay:    DefaultRetryDelay,
		},
	}
}
