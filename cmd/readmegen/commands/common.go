package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/infra/postgres"
	"github.com/jinford/readmegen/internal/platform/container"
	"github.com/jinford/readmegen/internal/platform/logger"
	"github.com/jinford/readmegen/pkg/config"
	"github.com/jinford/readmegen/pkg/db"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Database  *db.DB
	JobStore  generation.Store
	Container *container.ServiceContainer // generateコマンドのみが初期化する
}

// NewAppContext は設定とロガーを組み立て、ジョブストアまでを初期化する。
// 照会系コマンドはLLMクライアントやワーカーを必要としないため、
// フルコンテナは NewServiceAppContext 側でのみ構築する
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	appLogger, cfg, err := bootstrap(cmd)
	if err != nil {
		return nil, err
	}

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	store := postgres.NewJobStore(database.Pool, cfg.Database.DSN(), appLogger)
	if err := store.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ジョブテーブルの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:   cfg,
		Database: database,
		JobStore: store,
	}, nil
}

// NewServiceAppContext は生成サービスとワーカープールを含むフルコンテナを初期化する
func NewServiceAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	appLogger, cfg, err := bootstrap(cmd)
	if err != nil {
		return nil, err
	}

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Database:  cont.Database(),
		JobStore:  cont.JobStore,
		Container: cont,
	}, nil
}

// bootstrap はグローバルフラグからロガーと設定を組み立てる
func bootstrap(cmd *cli.Command) (*slog.Logger, *config.Config, error) {
	level, err := logger.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, nil, err
	}
	appLogger := logger.New(logger.Config{
		Level:  level,
		Format: cmd.String("log-format"),
	})

	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	return appLogger, cfg, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		// コンテナ経由の場合はDB接続もコンテナが所有している
		ac.Container.Close()
		return
	}
	if ac.Database != nil {
		ac.Database.Close()
	}
}
