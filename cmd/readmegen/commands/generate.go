package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/readmegen/internal/core/generation"
)

// 完了待ちのポーリング間隔
const waitPollInterval = 2 * time.Second

// GenerateAction はREADME生成ジョブを投入するコマンドのアクション
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	archivePath := cmd.String("archive")

	if (url == "") == (archivePath == "") {
		return fmt.Errorf("--url と --archive はどちらか一方を指定してください")
	}

	sessionID := cmd.String("session")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	slog.Info("README生成ジョブを投入",
		"url", url,
		"archive", archivePath,
		"sessionID", sessionID,
	)

	appCtx, err := NewServiceAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	svc := appCtx.Container.GenerationService

	var job *generation.Job
	if url != "" {
		job, err = svc.SubmitRemote(ctx, generation.SubmitRemoteParams{
			URL:        url,
			SessionID:  sessionID,
			Credential: cmd.String("token"),
		})
	} else {
		job, err = svc.SubmitArchive(ctx, generation.SubmitArchiveParams{
			ArchivePath: archivePath,
			SessionID:   sessionID,
		})
	}
	if err != nil {
		return fmt.Errorf("ジョブの投入に失敗: %w", err)
	}

	fmt.Printf("✓ ジョブを受け付けました\n")
	fmt.Printf("  ID: %s\n", job.ID)
	fmt.Printf("  Session: %s\n", job.SessionID)

	if !cmd.Bool("wait") {
		fmt.Printf("\n状態確認: readmegen status --id %s\n", job.ID)
		return nil
	}

	final, err := waitForCompletion(ctx, appCtx, job.ID)
	if err != nil {
		return err
	}

	fmt.Println()
	printJob(final)

	if final.Status == generation.StatusFailed {
		return fmt.Errorf("ジョブが失敗しました")
	}
	fmt.Printf("\nダウンロード: readmegen download --id %s\n", final.ID)
	return nil
}

// waitForCompletion はジョブが終端状態になるまでストアをポーリングする
func waitForCompletion(ctx context.Context, appCtx *AppContext, id uuid.UUID) (*generation.Job, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := appCtx.JobStore.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ジョブの取得に失敗: %w", err)
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
