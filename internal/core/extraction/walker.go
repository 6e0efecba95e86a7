package extraction

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"
)

// 設定ファイルとして常に内容を取得する既知のマニフェスト名
// 先頭側ほど優先度が高く、ルート走査に失敗した場合のフォールバックでは
// 先頭の fallbackManifestCount 件だけを直接読みに行く
var configFilePatterns = []string{
	"package.json", "requirements.txt", "Pipfile", "pyproject.toml",
	"Dockerfile", "docker-compose.yml", ".env.example", "Cargo.toml",
	"go.mod", "pom.xml", "build.gradle", "Makefile", "CMakeLists.txt",
	"setup.py", "setup.cfg", "composer.json", "Gemfile", "tsconfig.json",
	"package-lock.json", "yarn.lock", "Pipfile.lock",
}

// 名前が既知のマニフェストに一致しなくても設定ファイル扱いとする拡張子
var configExtensions = []string{".toml", ".yaml", ".yml", ".json", ".lock"}

// ソースファイルとして認識する拡張子
var codeExtensions = []string{
	".py", ".js", ".ts", ".java", ".go", ".rs", ".cpp", ".c",
	".cs", ".php", ".rb", ".swift", ".kt",
}

// テスト資材と見なすディレクトリ名（小文字）
var testDirNames = []string{"test", "tests", "spec", "specs", "__tests__", "__test__"}

// 深さ制限を超えても降りていく重要なコードディレクトリ（小文字）
// 言語によってはコードが数階層下に置かれるため（例: src/main/java/...）、
// この配下では depth < 3 の制限を適用しない
var importantCodeDirs = []string{
	"src", "app", "lib", "main", "server", "client", "backend", "frontend",
	"cmd", "pkg", "internal", "components", "pages", "services", "controllers",
	"models", "views", "routes", "handlers", "utils", "helpers",
}

// 既存ドキュメントの候補名（優先順・先勝ち）
var documentCandidates = []string{"README.md", "README.txt", "README", "readme.md"}

const (
	// ディレクトリを構造一覧に記録する深さの上限
	maxRecordedDirDepth = 3
	// ルート走査失敗時のフォールバックで読むマニフェスト数
	fallbackManifestCount = 10
)

// Walker は上限付きの深さ優先走査でリポジトリの標本を組み立てる
// 呼び出しごとの状態しか持たないため、1つの Walker を
// 複数のソースに対して並行に使用できる
type Walker struct {
	limits Limits
	logger *slog.Logger
}

// NewWalker は新しい Walker を作成する
// limits のゼロ値項目はデフォルト値で補完される
func NewWalker(limits Limits, logger *slog.Logger) *Walker {
	return &Walker{
		limits: limits.withDefaults(),
		logger: logger,
	}
}

// walkState は1回の走査のあいだだけ共有される可変状態
type walkState struct {
	fileCount int
}

// Walk はソースを走査して RepositorySample を組み立てる
// meta はリモートの到達確認で得たメタデータで、言語が未指定の場合は
// 走査結果からの推定で補う。ルートの走査に失敗しても標本は返し、
// よく知られたマニフェストの直接読み取りにフォールバックする
func (w *Walker) Walk(ctx context.Context, source TreeSource, meta Metadata) (*RepositorySample, error) {
	sample := &RepositorySample{
		Name:            meta.Name,
		Description:     meta.Description,
		PrimaryLanguage: meta.PrimaryLanguage,
		RevisionMarker:  meta.RevisionMarker,
	}

	w.findExistingDocument(ctx, source, sample)

	st := &walkState{}
	if err := w.walkDir(ctx, source, sample, st, "", 0); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// ルートすら読めないソースでもジョブ全体は失敗させず、
		// 代表的なマニフェストだけを直接読んで標本を成立させる
		w.logger.Warn("could not traverse repository root, falling back to manifest probing",
			"error", err)
		w.readFallbackManifests(ctx, source, sample)
	}

	if sample.PrimaryLanguage == "" {
		sample.PrimaryLanguage = InferLanguage(sample.ConfigFiles, sample.SourceFiles)
	}

	w.logger.Info("repository sample built",
		"name", sample.Name,
		"language", sample.PrimaryLanguage,
		"directories", len(sample.Directories),
		"config_files", len(sample.ConfigFiles),
		"source_files", len(sample.SourceFiles),
		"has_document", sample.ExistingDocument != "")

	return sample, nil
}

// findExistingDocument はルート直下の既存READMEを候補順に探す
// 個々の候補の読み取り失敗は無視して次の候補へ進む
func (w *Walker) findExistingDocument(ctx context.Context, source TreeSource, sample *RepositorySample) {
	for _, name := range documentCandidates {
		content, err := source.ReadContent(ctx, name)
		if err != nil || len(content) == 0 {
			continue
		}
		sample.ExistingDocument = strings.ToValidUTF8(string(content), "")
		w.logger.Info("found existing document", "name", name, "chars", len(sample.ExistingDocument))
		return
	}
	w.logger.Debug("no existing document found")
}

// walkDir は1つのディレクトリ直下を処理し、必要に応じて再帰する
// 走査順はソースの提供順をそのまま保つ
func (w *Walker) walkDir(ctx context.Context, source TreeSource, sample *RepositorySample, st *walkState, dir string, depth int) error {
	if depth > w.limits.MaxDepth || st.fileCount >= w.limits.MaxFiles {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := source.ListEntries(ctx, dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if st.fileCount >= w.limits.MaxFiles {
			break
		}

		nameLower := strings.ToLower(entry.Name)
		pathLower := strings.ToLower(entry.Path)

		if entry.IsDir && isTestDirectory(nameLower, pathLower) {
			w.logger.Debug("skipping test directory", "path", entry.Path)
			continue
		}
		if !entry.IsDir && isTestFile(nameLower, pathLower) {
			w.logger.Debug("skipping test file", "path", entry.Path)
			continue
		}

		if entry.IsDir {
			// 表示用の構造一覧は浅い階層だけを記録する
			// （深いディレクトリは走査対象にはなるが一覧には載せない）
			if depth <= maxRecordedDirDepth {
				sample.Directories = append(sample.Directories, entry.Path+"/")
			}

			if w.shouldEnter(nameLower, pathLower, depth) {
				if err := w.walkDir(ctx, source, sample, st, entry.Path, depth+1); err != nil {
					if ctx.Err() != nil {
						return err
					}
					// 読めないディレクトリはスキップして走査を続ける
					w.logger.Debug("could not enter directory", "path", entry.Path, "error", err)
					continue
				}
			}
			continue
		}

		st.fileCount++
		w.classifyFile(ctx, source, sample, st, entry)
	}

	return nil
}

// shouldEnter はディレクトリに降りるかどうかを判定する
// ルート直下と重要コードディレクトリ配下は深さに関わらず降り、
// それ以外は depth < 3 の範囲でのみ降りる
func (w *Walker) shouldEnter(nameLower, pathLower string, depth int) bool {
	if depth == 0 {
		return true
	}
	if slices.Contains(importantCodeDirs, nameLower) {
		return true
	}
	if isInCodePath(pathLower) {
		return true
	}
	return depth < maxRecordedDirDepth
}

// classifyFile はファイルを分類して標本に記録する
// 設定ファイルの判定がソースファイルの判定より優先され、
// ソースファイルの内容はファイル予算の半分までしか読まない
func (w *Walker) classifyFile(ctx context.Context, source TreeSource, sample *RepositorySample, st *walkState, entry Entry) {
	switch {
	case isConfigFile(entry.Name):
		content, err := source.ReadContent(ctx, entry.Path)
		if err != nil {
			w.logger.Warn("could not read config file", "path", entry.Path, "error", err)
			return
		}
		sample.ConfigFiles = append(sample.ConfigFiles, FileContent{
			Path:    entry.Path,
			Content: truncateContent(content, w.limits.MaxConfigBytes),
		})

	case hasCodeExtension(entry.Name):
		// 設定ファイルの方が後段の生成にとって情報密度が高いため、
		// ソースはファイル予算の前半でのみ内容を読む
		if st.fileCount > w.limits.MaxFiles/2 {
			w.logger.Debug("skipping source file content, budget half spent", "path", entry.Path)
			return
		}
		content, err := source.ReadContent(ctx, entry.Path)
		if err != nil {
			w.logger.Warn("could not read source file", "path", entry.Path, "error", err)
			return
		}
		sample.SourceFiles = append(sample.SourceFiles, FileContent{
			Path:    entry.Path,
			Content: truncateContent(content, w.limits.MaxSourceBytes),
		})
	}
}

// readFallbackManifests は既知のマニフェスト名の先頭数件だけを直接読む
// すべての失敗は無視される
func (w *Walker) readFallbackManifests(ctx context.Context, source TreeSource, sample *RepositorySample) {
	for _, name := range configFilePatterns[:fallbackManifestCount] {
		content, err := source.ReadContent(ctx, name)
		if err != nil {
			continue
		}
		sample.ConfigFiles = append(sample.ConfigFiles, FileContent{
			Path:    name,
			Content: truncateContent(content, w.limits.MaxConfigBytes),
		})
	}
}

// isTestDirectory はテスト資材ディレクトリかどうかを判定する（入力は小文字）
func isTestDirectory(nameLower, pathLower string) bool {
	if slices.Contains(testDirNames, nameLower) {
		return true
	}
	if strings.Contains(pathLower, "/test/") ||
		strings.Contains(pathLower, "/tests/") ||
		strings.Contains(pathLower, "/spec/") {
		return true
	}
	return strings.HasSuffix(pathLower, "/test") || strings.HasSuffix(pathLower, "/tests")
}

// isTestFile はテストファイルの命名規約に一致するかを判定する（入力は小文字）
func isTestFile(nameLower, pathLower string) bool {
	if strings.HasPrefix(nameLower, "test_") {
		return true
	}
	for _, ext := range codeExtensions {
		if strings.HasSuffix(nameLower, "_test"+ext) || strings.HasSuffix(nameLower, ".test"+ext) {
			return true
		}
	}
	if strings.Contains(nameLower, ".spec.") || strings.Contains(nameLower, ".test.") {
		return true
	}
	return strings.Contains(pathLower, "/test/") || strings.Contains(pathLower, "/tests/")
}

// isInCodePath は重要コードディレクトリの配下にあるパスかを判定する（入力は小文字）
func isInCodePath(pathLower string) bool {
	for _, dir := range importantCodeDirs {
		if strings.HasPrefix(pathLower, dir+"/") || pathLower == dir ||
			strings.Contains(pathLower, "/"+dir+"/") {
			return true
		}
	}
	return false
}

// isConfigFile は既知のマニフェスト名または設定系拡張子に一致するかを判定する
func isConfigFile(name string) bool {
	if slices.Contains(configFilePatterns, name) {
		return true
	}
	for _, ext := range configExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// hasCodeExtension はソースファイルの拡張子を持つかを判定する
func hasCodeExtension(name string) bool {
	for _, ext := range codeExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// truncateContent は内容を上限バイト数で切り詰めた文字列を返す
// 不正なUTF-8シーケンスは除去し、マルチバイト文字の途中では切らない
func truncateContent(b []byte, limit int) string {
	s := strings.ToValidUTF8(string(b), "")
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
