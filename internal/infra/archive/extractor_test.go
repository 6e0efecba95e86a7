package archive

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type zipEntry struct {
	name    string
	content string
}

// writeZip はテスト用のZIPアーカイブを作成します。
// 名前が / で終わるエントリはディレクトリとして記録されます
func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		require.NoError(t, err)
		if entry.content != "" {
			_, err = w.Write([]byte(entry.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// TestStage は取り込みが元のファイル名を保ったままサブディレクトリへコピーすることを確認します
func TestStage(t *testing.T) {
	uploadDir := t.TempDir()
	e := NewExtractor(uploadDir, 0, testLogger())

	src := filepath.Join(t.TempDir(), "myproject.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip-bytes"), 0o644))

	staged, err := e.Stage(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, "myproject.zip", filepath.Base(staged))
	assert.True(t, strings.HasPrefix(staged, uploadDir+string(os.PathSeparator)))

	content, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-bytes"), content)

	// 取り込みごとに一意のサブディレクトリが切られる
	rel, err := filepath.Rel(uploadDir, staged)
	require.NoError(t, err)
	parts := strings.Split(rel, string(os.PathSeparator))
	require.Len(t, parts, 2)
	_, err = uuid.Parse(parts[0])
	assert.NoError(t, err)
}

// TestStageErrors は取り込めない入力の失敗を確認します
func TestStageErrors(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())

	t.Run("存在しないパス", func(t *testing.T) {
		_, err := e.Stage(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
		require.ErrorContains(t, err, "failed to stat archive")
	})

	t.Run("ディレクトリの指定", func(t *testing.T) {
		_, err := e.Stage(context.Background(), t.TempDir())
		require.ErrorContains(t, err, "archive path is a directory")
	})
}

// TestExtract は展開結果のツリーとプロジェクト名の推定を確認します
func TestExtract(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())
	archivePath := filepath.Join(t.TempDir(), "project.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "README.md", content: "# project\n"},
		{name: "main.go", content: "package main\n"},
		{name: "docs/"},
		{name: "docs/guide.md", content: "guide\n"},
	})

	tree, err := e.Extract(context.Background(), archivePath)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tree.Root) })

	// 最上位が複数エントリの場合はファイル名からプロジェクト名を推定する
	assert.Equal(t, "project", tree.Name)

	entries, err := tree.Source.ListEntries(context.Background(), "")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"README.md", "docs", "main.go"}, names)

	content, err := tree.Source.ReadContent(context.Background(), "docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("guide\n"), content)
}

// TestExtractUnwrapsSingleRoot は単一ディレクトリだけを含むZIPでその中身がルートになることを確認します
func TestExtractUnwrapsSingleRoot(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())
	archivePath := filepath.Join(t.TempDir(), "download.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "myapp/"},
		{name: "myapp/README.md", content: "# myapp\n"},
		{name: "myapp/main.go", content: "package main\n"},
	})

	tree, err := e.Extract(context.Background(), archivePath)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tree.Root) })

	// プロジェクト名はルートディレクトリ名から取る
	assert.Equal(t, "myapp", tree.Name)

	// 一覧にmyappの階層は現れない
	entries, err := tree.Source.ListEntries(context.Background(), "")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"README.md", "main.go"}, names)
}

// TestExtractRejectsOversizedArchive は申告サイズの合計が上限を超えるZIPが展開前に拒否されることを確認します
func TestExtractRejectsOversizedArchive(t *testing.T) {
	e := NewExtractor(t.TempDir(), 16, testLogger())
	archivePath := filepath.Join(t.TempDir(), "big.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "big.txt", content: strings.Repeat("x", 64)},
	})

	tree, err := e.Extract(context.Background(), archivePath)

	require.ErrorContains(t, err, "archive too large")
	assert.Nil(t, tree)
}

// TestExtractRejectsCorruptedArchive はZIPとして読めないファイルの拒否を確認します
func TestExtractRejectsCorruptedArchive(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())
	archivePath := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("this is not a zip"), 0o644))

	tree, err := e.Extract(context.Background(), archivePath)

	require.ErrorContains(t, err, "invalid or corrupted archive")
	assert.Nil(t, tree)
}

// TestExtractRejectsEscapingEntries は展開先の外へ抜けるエントリを含むZIP全体が拒否されることを確認します
func TestExtractRejectsEscapingEntries(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())
	archivePath := filepath.Join(t.TempDir(), "slip.zip")
	escapeName := "escape-" + uuid.New().String() + ".txt"
	writeZip(t, archivePath, []zipEntry{
		{name: "innocent.txt", content: "ok\n"},
		{name: "../" + escapeName, content: "owned\n"},
	})

	tree, err := e.Extract(context.Background(), archivePath)

	require.Error(t, err)
	assert.Nil(t, tree)
	// 展開先の親ディレクトリに何も書かれていないこと
	assert.NoFileExists(t, filepath.Join(os.TempDir(), escapeName))
}

// TestCleanup は展開ツリー・アーカイブ本体・空になった取り込みディレクトリが片付くことを確認します
func TestCleanup(t *testing.T) {
	uploadDir := t.TempDir()
	e := NewExtractor(uploadDir, 0, testLogger())

	src := filepath.Join(t.TempDir(), "project.zip")
	writeZip(t, src, []zipEntry{
		{name: "main.go", content: "package main\n"},
	})

	staged, err := e.Stage(context.Background(), src)
	require.NoError(t, err)
	tree, err := e.Extract(context.Background(), staged)
	require.NoError(t, err)

	e.Cleanup(staged, tree)

	assert.NoDirExists(t, tree.Root)
	assert.NoFileExists(t, staged)
	assert.NoDirExists(t, filepath.Dir(staged))
	assert.DirExists(t, uploadDir)
}

// TestCleanupWithoutTree は展開に至らなかったジョブでもアーカイブ本体が片付くことを確認します
func TestCleanupWithoutTree(t *testing.T) {
	e := NewExtractor(t.TempDir(), 0, testLogger())

	archivePath := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("junk"), 0o644))

	e.Cleanup(archivePath, nil)

	assert.NoFileExists(t, archivePath)

	// 既に存在しないパスやゼロ値でもパニックしない
	assert.NotPanics(t, func() {
		e.Cleanup(archivePath, nil)
		e.Cleanup("", nil)
	})
}

// TestNewExtractorDefaults はゼロ値設定が既定値で補われることを確認します
func TestNewExtractorDefaults(t *testing.T) {
	e := NewExtractor("", 0, testLogger())

	assert.Equal(t, DefaultUploadDir, e.uploadDir)
	assert.Equal(t, int64(DefaultMaxUncompressedBytes), e.maxBytes)
}
