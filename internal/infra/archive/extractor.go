package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jinford/readmegen/internal/core/generation"
)

const (
	// DefaultMaxUncompressedBytes は展開後サイズ合計の既定上限(100MiB)
	DefaultMaxUncompressedBytes = 100 << 20

	// DefaultUploadDir は取り込んだアーカイブの既定の置き場所
	DefaultUploadDir = "uploads"
)

// Extractor はZIPアーカイブの受け入れと展開を担う generation.ArchiveExtractor の実装です
type Extractor struct {
	uploadDir string
	maxBytes  int64
	logger    *slog.Logger
}

// NewExtractor は新しいExtractorを作成します。
// uploadDirが空の場合とmaxBytesが0以下の場合は既定値を使います
func NewExtractor(uploadDir string, maxBytes int64, logger *slog.Logger) *Extractor {
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUncompressedBytes
	}
	return &Extractor{
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Stage は提出されたアーカイブを管理ディレクトリへコピーします。
// 元のファイル名はプロジェクト名の推定に使うため、取り込み単位の
// サブディレクトリを切って保持します
func (e *Extractor) Stage(ctx context.Context, srcPath string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("archive path is a directory: %s", srcPath)
	}

	dir := filepath.Join(e.uploadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(srcPath))
	if err := copyFile(srcPath, dst); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to copy archive: %w", err)
	}

	e.logger.Debug("Archive staged", "src", srcPath, "dst", dst)
	return dst, nil
}

// Extract はアーカイブを検証して一時ディレクトリへ展開します。
// 展開後サイズの合計はヘッダから先に検査し、上限を超える場合は
// 1バイトも展開せずに失敗します
func (e *Extractor) Extract(ctx context.Context, archivePath string) (*generation.ExtractedTree, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("invalid or corrupted archive: %w", err)
	}
	defer reader.Close()

	var total uint64
	for _, f := range reader.File {
		total += f.UncompressedSize64
	}
	if total > uint64(e.maxBytes) {
		return nil, fmt.Errorf("archive too large: uncompressed size %d exceeds limit %d", total, e.maxBytes)
	}

	dest, err := os.MkdirTemp("", "readmegen-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	if err := e.extractAll(reader, dest); err != nil {
		// 途中まで展開したツリーを残さない
		os.RemoveAll(dest)
		return nil, err
	}

	root, name := unwrapSingleRoot(dest, archivePath)

	source, err := NewTreeSource(root)
	if err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("failed to open extracted tree: %w", err)
	}

	e.logger.Info("Archive extracted",
		"archive", archivePath,
		"entries", len(reader.File),
		"uncompressedBytes", total,
		"name", name,
	)

	return &generation.ExtractedTree{
		Source: source,
		Name:   name,
		Root:   dest,
	}, nil
}

// extractAll は全エントリを展開します。展開先の外へ抜けるパスを含む
// アーカイブは全体を拒否します
func (e *Extractor) extractAll(reader *zip.ReadCloser, dest string) error {
	cleanDest := filepath.Clean(dest)
	budget := e.maxBytes

	for _, f := range reader.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction root: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", f.Name, err)
			}
			continue
		}

		written, err := e.extractFile(f, target, budget)
		if err != nil {
			return err
		}

		// ヘッダの申告サイズを信用せず、実際に書いた量でも上限を守る
		budget -= written
		if budget < 0 {
			return fmt.Errorf("archive too large: uncompressed size exceeds limit %d", e.maxBytes)
		}
	}

	return nil
}

func (e *Extractor) extractFile(f *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", f.Name, err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		return written, fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}

	return written, nil
}

// Cleanup は展開ツリーとアーカイブ本体を削除します。
// 取り込み時に切ったサブディレクトリが空になっていればそれも片付けます
func (e *Extractor) Cleanup(archivePath string, tree *generation.ExtractedTree) {
	if tree != nil && tree.Root != "" {
		if err := os.RemoveAll(tree.Root); err != nil {
			e.logger.Warn("Failed to remove extracted tree", "path", tree.Root, "error", err)
		}
	}

	if archivePath == "" {
		return
	}
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("Failed to remove archive file", "path", archivePath, "error", err)
	}

	// 空になった親ディレクトリの削除は成功すればそれでよい
	_ = os.Remove(filepath.Dir(archivePath))
}

// unwrapSingleRoot は展開結果が単一のディレクトリだけを含む場合に
// その中身を実際のルートとして扱います。GitHubのダウンロードZIPのように
// 最上位に1つだけプロジェクトディレクトリを持つ形式に対応するためです
func unwrapSingleRoot(dest, archivePath string) (root, name string) {
	entries, err := os.ReadDir(dest)
	if err == nil && len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), entries[0].Name()
	}

	base := filepath.Base(archivePath)
	return dest, strings.TrimSuffix(base, filepath.Ext(base))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// インターフェース実装の確認
var _ generation.ArchiveExtractor = (*Extractor)(nil)
