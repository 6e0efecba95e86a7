package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTreeFixture(t *testing.T, root string, dirs []string, files map[string]string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
}

// TestTreeSourceListEntries は隠しエントリとごみエントリが一覧から除外されることを確認します
func TestTreeSourceListEntries(t *testing.T) {
	root := t.TempDir()
	writeTreeFixture(t, root,
		[]string{".git", "__MACOSX", "src"},
		map[string]string{
			"README.md":    "# app\n",
			".env.example": "PORT=8080\n",
			".gitignore":   "dist/\n",
			".DS_Store":    "junk",
			"Thumbs.db":    "junk",
			"desktop.ini":  "junk",
			".hidden":      "secret",
			"src/app.go":   "package app\n",
		})

	source, err := NewTreeSource(root)
	require.NoError(t, err)

	entries, err := source.ListEntries(context.Background(), "")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{".env.example", ".gitignore", "README.md", "src"}, names)

	for _, entry := range entries {
		assert.Equal(t, entry.Name == "src", entry.IsDir, "entry %s", entry.Name)
	}
}

// TestTreeSourceSubdirectoryPaths はサブディレクトリのエントリがルートからの相対パスを持つことを確認します
func TestTreeSourceSubdirectoryPaths(t *testing.T) {
	root := t.TempDir()
	writeTreeFixture(t, root,
		[]string{"src"},
		map[string]string{"src/app.go": "package app\n"})

	source, err := NewTreeSource(root)
	require.NoError(t, err)

	entries, err := source.ListEntries(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "app.go", entries[0].Name)
	assert.Equal(t, "src/app.go", entries[0].Path)
	assert.False(t, entries[0].IsDir)
}

// TestTreeSourceReadContent はファイル内容の取得を確認します
func TestTreeSourceReadContent(t *testing.T) {
	root := t.TempDir()
	writeTreeFixture(t, root, nil, map[string]string{"main.go": "package main\n"})

	source, err := NewTreeSource(root)
	require.NoError(t, err)

	content, err := source.ReadContent(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Equal(t, []byte("package main\n"), content)

	_, err = source.ReadContent(context.Background(), "missing.go")
	require.ErrorContains(t, err, "failed to read file")
}

// TestNewTreeSourceErrors は開けないルートの失敗を確認します
func TestNewTreeSourceErrors(t *testing.T) {
	t.Run("存在しないルート", func(t *testing.T) {
		_, err := NewTreeSource(filepath.Join(t.TempDir(), "missing"))
		require.ErrorContains(t, err, "failed to stat tree root")
	})

	t.Run("ファイルのルート", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := NewTreeSource(path)
		require.ErrorContains(t, err, "tree root is not a directory")
	})
}
