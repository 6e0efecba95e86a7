package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/readmegen/internal/core/generation"
)

// StatusAction はジョブの状態を表示するコマンドのアクション
func StatusAction(ctx context.Context, cmd *cli.Command) error {
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

	printJob(job)
	return nil
}

// printJob はジョブの概要を標準出力に表示する
func printJob(job *generation.Job) {
	fmt.Printf("=== ジョブ詳細 ===\n\n")
	fmt.Printf("ID:              %s\n", job.ID)
	fmt.Printf("Session:         %s\n", job.SessionID)
	fmt.Printf("Status:          %s\n", job.Status)
	fmt.Printf("Input Kind:      %s\n", job.InputKind)
	if job.SourceURL != "" {
		fmt.Printf("Source URL:      %s\n", job.SourceURL)
	}
	if job.Location != nil {
		fmt.Printf("Location:        %s\n", *job.Location)
	}
	if job.RevisionMarker != nil {
		fmt.Printf("Revision:        %s\n", *job.RevisionMarker)
	}
	fmt.Printf("Downloaded:      %t\n", job.Downloaded)
	fmt.Printf("Created At:      %s\n", job.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated At:      %s\n", job.UpdatedAt.Format(time.RFC3339))

	switch job.Status {
	case generation.StatusFailed:
		if job.Result != nil {
			fmt.Printf("\n失敗理由:\n%s\n", *job.Result)
		}
	case generation.StatusCompleted:
		if job.Result != nil {
			fmt.Printf("\n生成済みREADME: %d文字（download コマンドで取得できます）\n", len([]rune(*job.Result)))
		}
	}
}
