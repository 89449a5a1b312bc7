package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gcstorage "cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/tusrelay/tusrelay/pkg/filestore"
	"github.com/tusrelay/tusrelay/pkg/notify"
	"github.com/tusrelay/tusrelay/pkg/objectstore"
	"github.com/tusrelay/tusrelay/pkg/redisinfo"
	"github.com/tusrelay/tusrelay/pkg/upload"
)

// environSnapshot freezes os.Environ() into a map once, so every
// directory-template expansion for the lifetime of the process sees
// the same environment regardless of later mutation.
func environSnapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i != -1 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// buildInfoStore selects and constructs the configured InfoStore
// backend.
func buildInfoStore(cfg *Config, log zerolog.Logger) (upload.InfoStore, error) {
	switch cfg.InfoStoreKind {
	case "redis":
		log.Info().Str("url", redactURL(cfg.RedisURL)).Msg("using redis info store")
		return redisinfo.New(cfg.RedisURL, cfg.RedisTTL)
	case "file", "":
		log.Info().Str("path", cfg.InfoStorePath).Msg("using file info store")
		return filestore.NewFileInfoStore(cfg.InfoStorePath), nil
	default:
		return nil, fmt.Errorf("cli: unknown info-store backend %q", cfg.InfoStoreKind)
	}
}

// buildDataStore selects and constructs the configured DataStore
// backend: a plain file store, or a hybrid store staging locally and
// promoting to S3 or GCS once an upload completes.
func buildDataStore(ctx context.Context, cfg *Config, log zerolog.Logger) (upload.DataStore, error) {
	switch cfg.DataStoreKind {
	case "file", "":
		log.Info().Str("dir", cfg.DataDir).Msg("using file data store")
		return filestore.NewFileStore(cfg.DataDir, cfg.DirStructure, environSnapshot(), cfg.ForceFsync), nil

	case "hybrid-s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("cli: data-store hybrid-s3 requires -s3-bucket")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("cli: failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = &cfg.S3Endpoint
				o.UsePathStyle = true
			}
		})
		remote := objectstore.NewS3Remote(client, cfg.S3Bucket, cfg.DirStructure, environSnapshot(), cfg.ObjectPrefix)
		staging := filestore.NewFileStore(cfg.DataDir, cfg.DirStructure, environSnapshot(), cfg.ForceFsync)
		log.Info().Str("bucket", cfg.S3Bucket).Str("staging", cfg.DataDir).Msg("using hybrid S3 data store")
		return objectstore.NewHybrid(staging, remote), nil

	case "hybrid-gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("cli: data-store hybrid-gcs requires -gcs-bucket")
		}
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("cli: failed to create GCS client: %w", err)
		}
		remote := objectstore.NewGCSRemote(client, cfg.GCSBucket, cfg.DirStructure, environSnapshot(), cfg.ObjectPrefix)
		staging := filestore.NewFileStore(cfg.DataDir, cfg.DirStructure, environSnapshot(), cfg.ForceFsync)
		log.Info().Str("bucket", cfg.GCSBucket).Str("staging", cfg.DataDir).Msg("using hybrid GCS data store")
		return objectstore.NewHybrid(staging, remote), nil

	default:
		return nil, fmt.Errorf("cli: unknown data-store backend %q", cfg.DataStoreKind)
	}
}

// buildNotifiers constructs one upload.Notifier per configured
// transport. A deployment may wire more than one transport at once;
// all configured transports fire for every enabled hook.
func buildNotifiers(cfg *Config, format notify.Format) ([]upload.Notifier, error) {
	var notifiers []upload.Notifier

	if cfg.HTTPHookURL != "" {
		notifiers = append(notifiers, notify.NewHTTPNotifier(
			cfg.HTTPHookURL, format, 2*time.Second, 3, cfg.HTTPHookForwardHeaders))
	}

	if cfg.SubprocessFileCommand != "" {
		notifiers = append(notifiers, notify.NewSubprocessFileNotifier(cfg.SubprocessFileCommand, format))
	}

	if cfg.SubprocessDir != "" {
		notifiers = append(notifiers, notify.NewSubprocessDirNotifier(cfg.SubprocessDir, format))
	}

	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(
			cfg.AMQPURL, cfg.AMQPExchange, "topic", cfg.AMQPQueuesPrefix, "",
			notify.AMQPDeclareOptions{DeclareExchange: true, DeclareQueues: true},
			cfg.AMQPCelery, format)
		if err != nil {
			return nil, fmt.Errorf("cli: failed to build AMQP notifier: %w", err)
		}
		notifiers = append(notifiers, amqpNotifier)
	}

	if len(cfg.KafkaBrokers) > 0 {
		notifiers = append(notifiers, notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, "", format))
	}

	if cfg.NATSURL != "" {
		natsNotifier, err := notify.NewNATSNotifier(
			cfg.NATSURL, "", cfg.NATSSubjectPrefix, cfg.NATSRequestReply, format)
		if err != nil {
			return nil, fmt.Errorf("cli: failed to build NATS notifier: %w", err)
		}
		notifiers = append(notifiers, natsNotifier)
	}

	return notifiers, nil
}

// redactURL hides basic-auth credentials from a connection string
// before it is logged.
func redactURL(raw string) string {
	if i := strings.Index(raw, "@"); i != -1 {
		if j := strings.Index(raw, "://"); j != -1 && j < i {
			return raw[:j+3] + "***" + raw[i:]
		}
	}
	return raw
}
