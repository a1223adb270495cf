// Package container wires each worker binary's dependency graph once at
// startup: config in, a ready-to-run stage service out. Scopes that the
// original design handled with a DI container are explicit constructor
// calls here; per-task state lives in the stage structs' method calls,
// not in the container.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"meetscribe/internal/audio"
	"meetscribe/internal/broker"
	"meetscribe/internal/cache"
	"meetscribe/internal/config"
	"meetscribe/internal/database"
	"meetscribe/internal/logging"
	"meetscribe/internal/meeting"
	"meetscribe/internal/pipeline/chunkworker"
	"meetscribe/internal/pipeline/dispatcher"
	"meetscribe/internal/pipeline/merger"
	"meetscribe/internal/pipeline/summarizer"
	"meetscribe/internal/streaming"
	"meetscribe/internal/summarize"
	sumopenai "meetscribe/internal/summarize/providers/openai"
	"meetscribe/internal/task"
	"meetscribe/internal/transcription"
)

// Base holds the shared infrastructure handles every worker role needs.
type Base struct {
	Config   *config.Config
	Log      *logging.Logger
	DB       *gorm.DB
	Broker   *broker.Client
	Redis    *redis.Client
	Meetings meeting.Repository
}

// NewBase connects the database, broker, and cache and builds the shared
// repositories.
func NewBase(cfg *config.Config, log *logging.Logger) (*Base, error) {
	db, err := database.Open(cfg.Database, cfg.Server.Env)
	if err != nil {
		return nil, err
	}

	brokerClient, err := broker.Dial(cfg.Broker.URL, cfg.Broker.Prefetch*cfg.Pipeline.PrefetchMultiplier)
	if err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.Cache.URL)
	if err != nil {
		brokerClient.Close()
		return nil, fmt.Errorf("container: parse cache url: %w", err)
	}

	return &Base{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Broker:   brokerClient,
		Redis:    redis.NewClient(redisOpts),
		Meetings: meeting.NewGormRepository(db),
	}, nil
}

// Close releases the broker and cache connections. The gorm pool is left
// to process exit, matching how the rest of the codebase treats it.
func (b *Base) Close() {
	if b.Broker != nil {
		b.Broker.Close()
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
}

func (b *Base) chunkStore() *cache.ChunkStore {
	return cache.NewChunkStore(b.Redis, time.Duration(b.Config.Cache.TTL)*time.Second)
}

// NewDispatcher builds the start-transcribe stage service.
func (b *Base) NewDispatcher(ctx context.Context) (*dispatcher.Dispatcher, error) {
	s3Client, err := newS3Client(ctx, b.Config.ObjectStore)
	if err != nil {
		return nil, err
	}

	return &dispatcher.Dispatcher{
		Meetings:        b.Meetings,
		Splitter:        audio.NewSplitter(),
		S3Reader:        streaming.NewS3Reader(s3Client, b.Config.Pipeline.MaxRetries),
		HTTPReader:      streaming.NewHTTPReader(b.Config.Pipeline.MaxRetries),
		Publisher:       b.Broker,
		StagingRoot:     b.Config.Pipeline.StagingRoot,
		ChunkDurationMs: int64(b.Config.Pipeline.ChunkDurationMinutes) * 60 * 1000,
		Log:             b.Log.WithComponent("dispatcher"),
	}, nil
}

// NewChunkWorker builds the per-chunk transcription stage service.
func (b *Base) NewChunkWorker() (*chunkworker.Worker, error) {
	provider, err := transcription.NewProvider(b.Config.Transcription, b.Config.LLM)
	if err != nil {
		return nil, err
	}

	return &chunkworker.Worker{
		Meetings:  meeting.NewGormRepository(b.DB),
		Chunks:    b.chunkStore(),
		Provider:  provider,
		Publisher: b.Broker,
		Log:       b.Log.WithComponent("chunkworker"),
	}, nil
}

// NewMerger builds the merge stage service.
func (b *Base) NewMerger() *merger.Merger {
	return &merger.Merger{
		Meetings:    b.Meetings,
		Chunks:      b.chunkStore(),
		Publisher:   b.Broker,
		StagingRoot: b.Config.Pipeline.StagingRoot,
		Log:         b.Log.WithComponent("merger"),
	}
}

// NewSummarizer builds the summarize stage service, shared by the
// summarize, key-notes, and tasks consumers.
func (b *Base) NewSummarizer() (*summarizer.Summarizer, error) {
	provider, err := newLLMProvider(b.Config.LLM)
	if err != nil {
		return nil, err
	}

	return &summarizer.Summarizer{
		Meetings:         b.Meetings,
		Tasks:            task.NewGormRepository(b.DB),
		Provider:         provider,
		Publisher:        b.Broker,
		SummaryChunkSize: b.Config.Pipeline.SummaryChunkSize,
		Log:              b.Log.WithComponent("summarizer"),
	}, nil
}

func newLLMProvider(cfg config.LLMConfig) (summarize.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return sumopenai.New(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxRetries,
			time.Duration(cfg.RetryDelay)*time.Second), nil
	default:
		return nil, fmt.Errorf("container: unknown llm provider %q", cfg.Provider)
	}
}

func newS3Client(ctx context.Context, cfg config.ObjectStoreConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("container: load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}
