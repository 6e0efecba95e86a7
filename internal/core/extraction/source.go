package extraction

import "context"

// Entry は走査対象ツリーの1エントリを表す
type Entry struct {
	// Name はエントリ名（パスの末尾要素）
	Name string
	// Path はルートからの相対パス（区切りは / ）
	Path string
	// IsDir はディレクトリかどうか
	IsDir bool
}

// TreeSource はリポジトリツリーへの読み取りアクセスを抽象化する
// リモートAPIを背後に持つ実装とローカル展開ディレクトリの実装があり、
// 走査ロジックはこのインターフェースに対して一度だけ書かれる
type TreeSource interface {
	// ListEntries は指定ディレクトリ直下のエントリをソースの提供順のまま返す
	// ルートは空文字列で指定する
	ListEntries(ctx context.Context, dir string) ([]Entry, error)

	// ReadContent は指定パスのファイル内容を返す
	ReadContent(ctx context.Context, path string) ([]byte, error)
}
