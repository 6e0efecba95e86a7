package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/readmegen/internal/core/extraction"
	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/core/hosting"
	"github.com/jinford/readmegen/internal/infra/archive"
	"github.com/jinford/readmegen/internal/infra/github"
	"github.com/jinford/readmegen/internal/infra/openai"
	"github.com/jinford/readmegen/internal/infra/postgres"
	"github.com/jinford/readmegen/pkg/config"
	"github.com/jinford/readmegen/pkg/db"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
// 生成サービスとワーカーをまとめて構築し、Close で逆順に解放する。
type ServiceContainer struct {
	GenerationService *generation.Service
	JobStore          generation.Store // ジョブ照会用

	dispatcher *generation.Dispatcher
	logger     *slog.Logger
	database   *db.DB
}

type containerOptions struct {
	logger        *slog.Logger
	store         generation.Store
	generator     generation.Generator
	hostingClient hosting.Client
	treeOpener    generation.RemoteTreeOpener
	archive       generation.ArchiveExtractor
	scheduler     generation.Scheduler
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerStore はジョブストアを差し替える
func WithContainerStore(store generation.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// WithContainerGenerator はドキュメント生成器を差し替える
func WithContainerGenerator(generator generation.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerHostingClient はホスティングAPIクライアントを差し替える
func WithContainerHostingClient(client hosting.Client) ContainerOption {
	return func(opts *containerOptions) {
		opts.hostingClient = client
	}
}

// WithContainerTreeOpener はリモートツリーの読み取り口を差し替える
func WithContainerTreeOpener(opener generation.RemoteTreeOpener) ContainerOption {
	return func(opts *containerOptions) {
		opts.treeOpener = opener
	}
}

// WithContainerArchiveExtractor はアーカイブ展開器を差し替える
func WithContainerArchiveExtractor(extractor generation.ArchiveExtractor) ContainerOption {
	return func(opts *containerOptions) {
		opts.archive = extractor
	}
}

// WithContainerScheduler はジョブスケジューラを差し替える。
// 指定した場合、内蔵のワーカープールは起動しない。
func WithContainerScheduler(scheduler generation.Scheduler) ContainerOption {
	return func(opts *containerOptions) {
		opts.scheduler = scheduler
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	container, err := NewContainerWithDB(ctx, cfg, database, opts...)
	if err != nil {
		database.Close()
		return nil, err
	}
	return container, nil
}

// NewContainerWithDB は既存のデータベース接続を受け取りコンテナを生成する。
func NewContainerWithDB(ctx context.Context, cfg *config.Config, database *db.DB, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Store (PostgreSQL)
	store := options.store
	if store == nil {
		jobStore := postgres.NewJobStore(database.Pool, cfg.Database.DSN(), options.logger)
		if err := jobStore.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("ジョブテーブルの初期化に失敗しました: %w", err)
		}
		store = jobStore
	}

	// HostingClient / TreeOpener (GitHub)
	hostingClient := options.hostingClient
	treeOpener := options.treeOpener
	if hostingClient == nil || treeOpener == nil {
		githubClient := github.NewClient(github.Config{
			Token:   cfg.GitHub.Token,
			BaseURL: cfg.GitHub.APIBaseURL,
			Timeout: time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
		}, options.logger)
		if hostingClient == nil {
			hostingClient = githubClient
		}
		if treeOpener == nil {
			treeOpener = githubClient
		}
	}

	hostingService := hosting.NewService(hostingClient, options.logger)

	// Walker
	walker := extraction.NewWalker(extraction.Limits{
		MaxFiles:       cfg.Extraction.MaxFiles,
		MaxDepth:       cfg.Extraction.MaxDepth,
		MaxConfigBytes: cfg.Extraction.MaxConfigBytes,
		MaxSourceBytes: cfg.Extraction.MaxSourceBytes,
	}, options.logger)

	// ArchiveExtractor
	archiveExtractor := options.archive
	if archiveExtractor == nil {
		archiveExtractor = archive.NewExtractor(cfg.Archive.UploadDir, cfg.Archive.MaxUncompressedBytes, options.logger)
	}

	// Generator (OpenAI)
	generator := options.generator
	if generator == nil {
		openaiGenerator, err := openai.NewGenerator(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		}, options.logger)
		if err != nil {
			return nil, fmt.Errorf("OpenAI クライアント初期化に失敗しました: %w", err)
		}
		generator = openaiGenerator
	}

	// Scheduler (ワーカープール)
	var dispatcher *generation.Dispatcher
	scheduler := options.scheduler
	if scheduler == nil {
		dispatcher = generation.NewDispatcher(cfg.Worker.Count, cfg.Worker.QueueCapacity, options.logger)
		scheduler = dispatcher
	}

	generationService := generation.NewService(
		store,
		generator,
		treeOpener,
		archiveExtractor,
		hostingService,
		walker,
		scheduler,
		options.logger,
	)

	// ワーカーはサービス構築後に起動する（処理関数がサービスに属するため）
	if dispatcher != nil {
		dispatcher.Start(generationService.Process)
	}

	return &ServiceContainer{
		GenerationService: generationService,
		JobStore:          store,
		dispatcher:        dispatcher,
		logger:            options.logger,
		database:          database,
	}, nil
}

// Close は内部リソースを解放する。
// ワーカーが処理中のジョブはストアを使うため、停止を待ってから接続を閉じる。
func (c *ServiceContainer) Close() {
	if c == nil {
		return
	}
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
	if c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *db.DB {
	if c == nil {
		return nil
	}
	return c.database
}
