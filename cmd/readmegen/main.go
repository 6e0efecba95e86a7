package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/readmegen/cmd/readmegen/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// フラグ解析前のデフォルトロガー（各コマンドが設定値で置き換える）
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "readmegen",
		Usage: "リポジトリ内容からREADMEドラフトを生成する非同期ジョブツール",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "環境変数ファイルパス",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "ログレベル (debug/info/warn/error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "ログ形式 (json/text)",
				Value: "json",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "README生成ジョブを投入",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "リポジトリURL（--archiveと排他）",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "ZIPアーカイブのパス（--urlと排他）",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "セッションID（省略時は自動生成）",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "このジョブに限り使用するアクセストークン",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "ジョブが終端状態になるまで待機",
					},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:  "status",
				Usage: "ジョブの状態を表示",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "ジョブID",
						Required: true,
					},
				},
				Action: commands.StatusAction,
			},
			{
				Name:  "download",
				Usage: "完了したジョブのREADMEをファイルへ書き出す",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "ジョブID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "出力ファイルパス",
						Value: "README.generated.md",
					},
				},
				Action: commands.DownloadAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
