package hosting

import "context"

// Client はホスティングプロバイダのメタデータAPIを抽象化するインターフェース
// credential は呼び出しごとに指定でき、空の場合は実装側のデフォルトを使う
type Client interface {
	// GetRepository はリポジトリのメタデータを1回のリクエストで取得する
	// 応答コードは ErrNotFound / ErrInvalidCredential / ErrAccessDenied /
	// UpstreamError のいずれかに分類して返す
	GetRepository(ctx context.Context, loc Location, credential string) (*RepoMetadata, error)

	// GetBranchHead は指定ブランチの先頭コミット識別子を返す
	GetBranchHead(ctx context.Context, loc Location, branch, credential string) (string, error)

	// CompareRevisions は2つのリビジョン間の差分を取得する
	CompareRevisions(ctx context.Context, loc Location, oldRev, newRev, credential string) (*RevisionComparison, error)
}
