package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/core/hosting"
)

func runAction(t *testing.T, action func(context.Context, *cli.Command) error, flags []cli.Flag, args []string) error {
	t.Helper()
	cmd := &cli.Command{
		Name:   "test",
		Flags:  flags,
		Action: action,
	}
	return cmd.Run(context.Background(), append([]string{"test"}, args...))
}

func TestGenerateAction_InputValidation(t *testing.T) {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "url"},
		&cli.StringFlag{Name: "archive"},
	}

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "入力の指定なし",
			args: nil,
		},
		{
			name: "URLとアーカイブの同時指定",
			args: []string{"--url", "https://github.com/octocat/hello-world", "--archive", "app.zip"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runAction(t, GenerateAction, flags, tt.args)
			require.ErrorContains(t, err, "どちらか一方")
		})
	}
}

func TestStatusAction_InvalidID(t *testing.T) {
	flags := []cli.Flag{&cli.StringFlag{Name: "id"}}

	err := runAction(t, StatusAction, flags, []string{"--id", "not-a-uuid"})
	require.ErrorContains(t, err, "ジョブIDの形式が不正")
}

func TestDownloadAction_InvalidID(t *testing.T) {
	flags := []cli.Flag{&cli.StringFlag{Name: "id"}}

	err := runAction(t, DownloadAction, flags, []string{"--id", "not-a-uuid"})
	require.ErrorContains(t, err, "ジョブIDの形式が不正")
}

func TestPrintJob(t *testing.T) {
	t.Run("完了したリモートジョブ", func(t *testing.T) {
		job := generation.NewRemoteJob("sess-1", "https://github.com/octocat/hello-world",
			hosting.Location{Owner: "octocat", Repo: "hello-world"})
		job.Status = generation.StatusCompleted
		result := "# hello-world\n\nA sample project.\n"
		marker := "0123456789abcdef0123456789abcdef01234567"
		job.Result = &result
		job.RevisionMarker = &marker

		assert.NotPanics(t, func() {
			printJob(job)
		})
	})

	t.Run("失敗したジョブ", func(t *testing.T) {
		job := generation.NewArchiveJob("sess-2", "/var/uploads/app.zip")
		job.Status = generation.StatusFailed
		reason := "repository not found"
		job.Result = &reason

		assert.NotPanics(t, func() {
			printJob(job)
		})
	})

	t.Run("最小構成の待機中ジョブ", func(t *testing.T) {
		assert.NotPanics(t, func() {
			printJob(generation.NewArchiveJob("sess-3", "/var/uploads/app.zip"))
		})
	})
}
