package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/readmegen/internal/core/generation"
)

// DownloadAction は完了したジョブの生成結果をファイルへ書き出すコマンドのアクション
func DownloadAction(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("ジョブIDの形式が不正です: %w", err)
	}

	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	job, err := appCtx.JobStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("ジョブの取得に失敗: %w", err)
	}

	if job.Status != generation.StatusCompleted {
		return fmt.Errorf("ジョブは完了していません (状態: %s)", job.Status)
	}
	if job.Result == nil {
		return fmt.Errorf("ジョブに生成結果がありません")
	}

	outPath := cmd.String("out")
	if err := os.WriteFile(outPath, []byte(*job.Result), 0o644); err != nil {
		return fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}

	// フラグの記録に失敗してもダウンロード自体は成功扱いとする
	if err := appCtx.JobStore.MarkDownloaded(ctx, id); err != nil {
		slog.Warn("ダウンロード済みフラグの記録に失敗しました", "jobID", id, "error", err)
	}

	fmt.Printf("✓ READMEを書き出しました: %s\n", outPath)
	return nil
}
