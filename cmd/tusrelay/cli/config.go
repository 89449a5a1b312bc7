package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tusrelay/tusrelay/pkg/server"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Config is the fully resolved set of knobs for one tusrelay server
// process. Values arrive in order of precedence: CLI flags, then
// TUSRELAY_-prefixed environment variables, then a config file, then
// the defaults set on the flags themselves.
type Config struct {
	Host     string
	Port     string
	BasePath string

	MaxFileSize int64
	AllowEmpty  bool
	RemoveParts bool
	BehindProxy bool

	Extensions []string

	InfoStoreKind string // "file" or "redis"
	InfoStorePath string
	RedisURL      string
	RedisTTL      time.Duration

	DataStoreKind string // "file", "hybrid-s3" or "hybrid-gcs"
	DataDir       string
	DirStructure  string
	ForceFsync    bool

	S3Bucket       string
	S3Endpoint     string
	GCSBucket      string
	ObjectPrefix   string

	Hooks       []string
	HooksFormat string

	HTTPHookURL            string
	HTTPHookForwardHeaders []string
	SubprocessFileCommand  string
	SubprocessDir          string
	AMQPURL                string
	AMQPExchange           string
	AMQPQueuesPrefix       string
	AMQPCelery             bool
	KafkaBrokers           []string
	KafkaTopic             string
	NATSURL                string
	NATSSubjectPrefix      string
	NATSRequestReply       bool

	ExposeMetrics bool
	MetricsPath   string

	LogFormat     string // "console" or "json"
	VerboseOutput bool
}

// bindFlags registers every flag this binary accepts on the given flag
// set; loadConfig then resolves the final Config once viper has also
// absorbed environment variables and an optional config file.
func bindFlags(flags *pflag.FlagSet) {
	flags.String("host", "0.0.0.0", "host to bind the HTTP server to")
	flags.String("port", "1080", "port to bind the HTTP server to")
	flags.String("base-path", "/files", "base path under which the tus endpoints are served")

	flags.Int64("max-size", 0, "maximum size of a single upload in bytes, 0 means unbounded")
	flags.Bool("allow-empty", false, "allow zero-length uploads to be created")
	flags.Bool("remove-parts", false, "remove partial uploads once they are concatenated into a final upload")
	flags.Bool("behind-proxy", false, "respect X-Forwarded-* headers when building absolute URLs")

	flags.StringSlice("extensions", []string{
		"creation", "creation-with-upload", "creation-defer-length",
		"termination", "concatenation", "getting", "checksum",
	}, "comma-separated list of enabled tus extensions")

	flags.String("info-store", "file", "metadata store backend: file or redis")
	flags.String("info-store-path", "./data/info", "directory for the file-backed info store")
	flags.String("redis-url", "redis://127.0.0.1:6379/0", "connection URL for the redis-backed info store")
	flags.Duration("redis-ttl", 0, "expire info records after this duration, 0 means never")

	flags.String("data-store", "file", "payload store backend: file, hybrid-s3 or hybrid-gcs")
	flags.String("data-dir", "./data/uploads", "directory for the file-backed or staging payload store")
	flags.String("dir-structure", "", "directory template for sharding payloads, e.g. {year}/{month}")
	flags.Bool("force-fsync", false, "fsync every chunk write before acknowledging it")

	flags.String("s3-bucket", "", "S3 bucket to use when data-store is hybrid-s3")
	flags.String("s3-endpoint", "", "custom S3-compatible endpoint, e.g. for minio")
	flags.String("gcs-bucket", "", "GCS bucket to use when data-store is hybrid-gcs")
	flags.String("object-prefix", "", "key prefix applied to every remote object")

	flags.StringSlice("hooks", []string{}, "comma-separated list of enabled hook events")
	flags.String("hooks-format", "default", "hook message wire format: default, v2 or tusd")

	flags.String("hooks-http", "", "HTTP endpoint hook messages are POSTed to")
	flags.StringSlice("hooks-http-forward-headers", []string{}, "request headers forwarded to the HTTP hook endpoint")
	flags.String("hooks-file", "", "command invoked as '<command> <hook> <message>' for every hook")
	flags.String("hooks-dir", "", "directory searched for a '<hook>' executable per hook event")
	flags.String("hooks-amqp-url", "", "AMQP URL hook messages are published to")
	flags.String("hooks-amqp-exchange", "tusrelay", "AMQP exchange hook messages are published to")
	flags.String("hooks-amqp-queues-prefix", "tusrelay", "prefix for the per-hook queues declared on Prepare")
	flags.Bool("hooks-amqp-celery", false, "wrap hook payloads in a Celery-compatible envelope")
	flags.StringSlice("hooks-kafka-brokers", []string{}, "Kafka broker addresses hook messages are produced to")
	flags.String("hooks-kafka-topic", "", "Kafka topic hook messages are produced to, empty means one topic per hook")
	flags.String("hooks-nats-url", "", "NATS server URL hook messages are published to")
	flags.String("hooks-nats-subject-prefix", "tusrelay", "subject prefix for '<prefix>.<hook>' NATS publishes")
	flags.Bool("hooks-nats-request-reply", false, "use NATS request-reply instead of fire-and-forget publish")

	flags.Bool("expose-metrics", true, "expose a Prometheus /metrics endpoint")
	flags.String("metrics-path", "/metrics", "path under which the metrics endpoint is served")

	flags.String("log-format", "console", "log output format: console or json")
	flags.Bool("verbose", false, "enable debug-level structured logging")
}

// loadConfig reads the bound flags, environment variables (TUSRELAY_
// prefix) and an optional config file into a Config, in that order of
// precedence via viper's own layered resolution.
func loadConfig(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TUSRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("cli: failed to bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cli: failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Host:                   v.GetString("host"),
		Port:                   v.GetString("port"),
		BasePath:               v.GetString("base-path"),
		MaxFileSize:            v.GetInt64("max-size"),
		AllowEmpty:             v.GetBool("allow-empty"),
		RemoveParts:            v.GetBool("remove-parts"),
		BehindProxy:            v.GetBool("behind-proxy"),
		Extensions:             v.GetStringSlice("extensions"),
		InfoStoreKind:          v.GetString("info-store"),
		InfoStorePath:          v.GetString("info-store-path"),
		RedisURL:               v.GetString("redis-url"),
		RedisTTL:               v.GetDuration("redis-ttl"),
		DataStoreKind:          v.GetString("data-store"),
		DataDir:                v.GetString("data-dir"),
		DirStructure:           v.GetString("dir-structure"),
		ForceFsync:             v.GetBool("force-fsync"),
		S3Bucket:               v.GetString("s3-bucket"),
		S3Endpoint:             v.GetString("s3-endpoint"),
		GCSBucket:              v.GetString("gcs-bucket"),
		ObjectPrefix:           v.GetString("object-prefix"),
		Hooks:                  v.GetStringSlice("hooks"),
		HooksFormat:            v.GetString("hooks-format"),
		HTTPHookURL:            v.GetString("hooks-http"),
		HTTPHookForwardHeaders: v.GetStringSlice("hooks-http-forward-headers"),
		SubprocessFileCommand:  v.GetString("hooks-file"),
		SubprocessDir:          v.GetString("hooks-dir"),
		AMQPURL:                v.GetString("hooks-amqp-url"),
		AMQPExchange:           v.GetString("hooks-amqp-exchange"),
		AMQPQueuesPrefix:       v.GetString("hooks-amqp-queues-prefix"),
		AMQPCelery:             v.GetBool("hooks-amqp-celery"),
		KafkaBrokers:           v.GetStringSlice("hooks-kafka-brokers"),
		KafkaTopic:             v.GetString("hooks-kafka-topic"),
		NATSURL:                v.GetString("hooks-nats-url"),
		NATSSubjectPrefix:      v.GetString("hooks-nats-subject-prefix"),
		NATSRequestReply:       v.GetBool("hooks-nats-request-reply"),
		ExposeMetrics:          v.GetBool("expose-metrics"),
		MetricsPath:            v.GetString("metrics-path"),
		LogFormat:              v.GetString("log-format"),
		VerboseOutput:          v.GetBool("verbose"),
	}

	return cfg, nil
}

// extensions converts the configured extension names into
// server.Extension values, rejecting anything unrecognized.
func (c *Config) extensions() ([]server.Extension, error) {
	known := map[string]server.Extension{
		"creation":               server.ExtensionCreation,
		"creation-with-upload":   server.ExtensionCreationWithUpload,
		"creation-defer-length":  server.ExtensionCreationDeferLength,
		"termination":            server.ExtensionTermination,
		"concatenation":          server.ExtensionConcatenation,
		"getting":                server.ExtensionGetting,
		"checksum":               server.ExtensionChecksum,
	}

	exts := make([]server.Extension, 0, len(c.Extensions))
	for _, name := range c.Extensions {
		ext, ok := known[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("cli: unknown extension %q", name)
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// hooks converts the configured hook names into upload.Hook values.
func (c *Config) hooks() ([]upload.Hook, error) {
	known := map[string]upload.Hook{}
	for _, h := range upload.AllHooks {
		known[string(h)] = h
	}

	hooks := make([]upload.Hook, 0, len(c.Hooks))
	for _, name := range c.Hooks {
		hook, ok := known[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("cli: unknown hook %q", name)
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}
