package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jinford/readmegen/internal/core/extraction"
	gitignore "github.com/sabhiram/go-gitignore"
)

// hiddenAllowlist はドットで始まる名前のうち読み取りを許可するファイル
var hiddenAllowlist = map[string]bool{
	".env.example":  true,
	".gitignore":    true,
	".dockerignore": true,
}

// junkPatterns はアーカイブに混入しがちなOS・ツール由来のごみ
var junkPatterns = []string{
	"__MACOSX",
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// treeSource は展開済みディレクトリを読む extraction.TreeSource の実装です。
// 隠しエントリとアーカイブ由来のごみは一覧の時点で取り除きます
type treeSource struct {
	root    string
	matcher *gitignore.GitIgnore
}

// NewTreeSource は展開済みディレクトリを読むツリーソースを作成します
func NewTreeSource(root string) (extraction.TreeSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tree root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tree root is not a directory: %s", root)
	}

	return &treeSource{
		root:    root,
		matcher: gitignore.CompileIgnoreLines(junkPatterns...),
	}, nil
}

// ListEntries はディレクトリ直下のエントリ一覧を名前順で返します。ルートは空文字列です
func (t *treeSource) ListEntries(ctx context.Context, dir string) ([]extraction.Entry, error) {
	dirEntries, err := os.ReadDir(filepath.Join(t.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	entries := make([]extraction.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if t.shouldSkip(name, de.IsDir()) {
			continue
		}
		entries = append(entries, extraction.Entry{
			Name:  name,
			Path:  path.Join(dir, name),
			IsDir: de.IsDir(),
		})
	}

	return entries, nil
}

// ReadContent はファイルの内容を返します
func (t *treeSource) ReadContent(ctx context.Context, p string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(p)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// shouldSkip は隠しエントリとごみエントリを判定します。
// 隠しディレクトリ(.git等)は常にスキップし、隠しファイルは許可リストにある
// ものだけ通します
func (t *treeSource) shouldSkip(name string, isDir bool) bool {
	if strings.HasPrefix(name, ".") {
		if isDir {
			return true
		}
		if !hiddenAllowlist[name] {
			return true
		}
	}
	return t.matcher.MatchesPath(name)
}

// インターフェース実装の確認
var _ extraction.TreeSource = (*treeSource)(nil)
