package extraction

// FileContent はファイルパスと切り詰め済み本文の組を表す
type FileContent struct {
	Path    string
	Content string
}

// Metadata は走査に先立って判明しているリポジトリ情報を表す
// リモートリポジトリでは到達確認の応答から引き継がれ、
// アーカイブ由来の場合は名前以外は空になる
type Metadata struct {
	Name            string
	Description     string
	PrimaryLanguage string
	RevisionMarker  string
}

// RepositorySample は1回の走査で組み立てられるリポジトリの標本
// ディレクトリとファイルはいずれも発見順を保持する
type RepositorySample struct {
	Name            string
	Description     string
	PrimaryLanguage string

	// RevisionMarker はリモートリポジトリの最新リビジョン識別子
	// アーカイブアップロードでは常に空
	RevisionMarker string

	// Directories は発見したディレクトリパスの一覧（末尾に / を付与）
	Directories []string

	// ConfigFiles は設定ファイルのパスと内容（MaxConfigBytes で切り詰め済み）
	ConfigFiles []FileContent

	// SourceFiles はソースファイルのパスと内容（MaxSourceBytes で切り詰め済み）
	SourceFiles []FileContent

	// ExistingDocument はルートで見つかった既存のREADME本文
	// 見つからなければ空
	ExistingDocument string
}

// FileCount は標本に記録されたファイルの総数を返す
func (s *RepositorySample) FileCount() int {
	return len(s.ConfigFiles) + len(s.SourceFiles)
}

// 走査上限のデフォルト値
const (
	DefaultMaxFiles       = 50
	DefaultMaxDepth       = 4
	DefaultMaxConfigBytes = 5000
	DefaultMaxSourceBytes = 3000
)

// Limits は走査コストを抑えるための上限設定
type Limits struct {
	// MaxFiles は記録するファイル数の上限
	MaxFiles int
	// MaxDepth は再帰の深さ上限
	MaxDepth int
	// MaxConfigBytes は設定ファイル1件あたりの保持バイト数
	MaxConfigBytes int
	// MaxSourceBytes はソースファイル1件あたりの保持バイト数
	MaxSourceBytes int
}

// DefaultLimits はデフォルトの上限設定を返す
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:       DefaultMaxFiles,
		MaxDepth:       DefaultMaxDepth,
		MaxConfigBytes: DefaultMaxConfigBytes,
		MaxSourceBytes: DefaultMaxSourceBytes,
	}
}

// withDefaults はゼロ値の項目をデフォルト値で補完した Limits を返す
func (l Limits) withDefaults() Limits {
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultMaxFiles
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxConfigBytes <= 0 {
		l.MaxConfigBytes = DefaultMaxConfigBytes
	}
	if l.MaxSourceBytes <= 0 {
		l.MaxSourceBytes = DefaultMaxSourceBytes
	}
	return l
}
