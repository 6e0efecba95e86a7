package hosting

// Location はリモートリポジトリを一意に識別する (owner, repo) の組を表す
// Resolve によって正規化された形でのみ生成される
type Location struct {
	Owner string
	Repo  string
}

// String は "owner/repo" 形式の表記を返す
func (l Location) String() string {
	return l.Owner + "/" + l.Repo
}

// IsZero は未設定の Location かどうかを返す
func (l Location) IsZero() bool {
	return l.Owner == "" && l.Repo == ""
}

// RepoMetadata はメタデータAPIから取得したリポジトリ情報を表す
// 到達確認の応答をそのまま保持し、抽出処理で再利用することで
// 同じメタデータの二重取得を避ける
type RepoMetadata struct {
	Name          string
	Description   string
	Language      string
	Private       bool
	DefaultBranch string

	// RevisionMarker はデフォルトブランチ先頭のコミット識別子
	// 取得できなかった場合は空文字列のまま処理を継続する
	RevisionMarker string
}

// IsPublic はリポジトリが公開されているかどうかを返す
func (m *RepoMetadata) IsPublic() bool {
	return !m.Private
}

// RevisionComparison は compare エンドポイントの応答から抽出した生データ
type RevisionComparison struct {
	// Files は変更されたファイルパスの一覧（応答に含まれた分のみ）
	Files []string
	// CommitMessages は各コミットのメッセージ全文
	CommitMessages []string
}

// ChangeSummary は2つのリビジョン間の変更概要を表す
// 生成処理へのバイアスとして使う補助情報であり、正確性は要求されない
type ChangeSummary struct {
	FilesChanged   int
	ChangedFiles   []string
	CommitCount    int
	CommitMessages []string
}
