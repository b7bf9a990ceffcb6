package models

// ConfigError reports an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// DirectoryConfig configures the external directory service used for
// identity resolution, profile pictures and media retrieval. The API key
// is taken from the environment, never from the config file.
type DirectoryConfig struct {
	BaseURL    string `json:"baseUrl"`
	Instance   string `json:"instance"`
	TimeoutSec int    `json:"timeoutSec"`
	APIKey     string `json:"-"`
}

// StorageConfig configures the object storage bucket that durable media
// copies are uploaded to.
type StorageConfig struct {
	BaseURL    string `json:"baseUrl"`
	Bucket     string `json:"bucket"`
	PathPrefix string `json:"pathPrefix"`
	APIKey     string `json:"-"`
}

// ResolverConfig controls the identity resolution cache. Positive entries
// outlive negative ones so unresolvable addresses (groups, broadcast,
// already-phone-based) stop hammering the directory while genuinely new
// contacts are picked up quickly.
type ResolverConfig struct {
	PositiveTTLHours   int `json:"positiveTtlHours"`
	NegativeTTLMinutes int `json:"negativeTtlMinutes"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type Config struct {
	LogLevel      string          `json:"logLevel"`
	RetentionDays int             `json:"retentionDays"`
	Server        ServerConfig    `json:"server"`
	Database      DatabaseConfig  `json:"database"`
	Directory     DirectoryConfig `json:"directory"`
	Storage       StorageConfig   `json:"storage"`
	Resolver      ResolverConfig  `json:"resolver"`
	Retry         RetryConfig     `json:"retry"`
	Tracing       TracingConfig   `json:"tracing"`
}
