package github

import (
	"context"
	"fmt"

	"github.com/jinford/readmegen/internal/core/extraction"
	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/core/hosting"
)

// OpenTree は指定された位置をコンテンツAPI経由で読むツリーソースを返します。
// API呼び出しは走査時まで発生しません
func (c *Client) OpenTree(loc hosting.Location, credential string) extraction.TreeSource {
	return &treeSource{client: c, loc: loc, credential: credential}
}

// treeSource はコンテンツAPIをディレクトリ1階層ずつ読むツリーソースです。
// ディレクトリに入るたびにAPI呼び出しが1回発生するため、走査の深さ制限が
// そのままAPI呼び出し回数の上限になります
type treeSource struct {
	client     *Client
	loc        hosting.Location
	credential string
}

// ListEntries はディレクトリ直下のエントリ一覧を返します。ルートは空文字列です
func (t *treeSource) ListEntries(ctx context.Context, dir string) ([]extraction.Entry, error) {
	api, err := t.client.api(ctx, t.credential)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()

	_, contents, _, err := api.Repositories.GetContents(ctx, t.loc.Owner, t.loc.Repo, dir, nil)
	if err != nil {
		return nil, mapError(t.loc, err)
	}
	if contents == nil {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	entries := make([]extraction.Entry, 0, len(contents))
	for _, content := range contents {
		entries = append(entries, extraction.Entry{
			Name:  content.GetName(),
			Path:  content.GetPath(),
			IsDir: content.GetType() == "dir",
		})
	}

	return entries, nil
}

// ReadContent はファイルの内容を返します。
// 1MBを超えるファイルはコンテンツAPIが拒否するため、その場合はエラーになります
func (t *treeSource) ReadContent(ctx context.Context, path string) ([]byte, error) {
	api, err := t.client.api(ctx, t.credential)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()

	fileContent, _, _, err := api.Repositories.GetContents(ctx, t.loc.Owner, t.loc.Repo, path, nil)
	if err != nil {
		return nil, mapError(t.loc, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("path is not a file: %s", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}

	return []byte(content), nil
}

// インターフェース実装の確認
var (
	_ extraction.TreeSource       = (*treeSource)(nil)
	_ generation.RemoteTreeOpener = (*Client)(nil)
)
