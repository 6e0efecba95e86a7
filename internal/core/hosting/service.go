package hosting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// 変更概要に含める変更ファイル名の最大数
	maxChangedFiles = 10
	// 変更概要に含めるコミットメッセージの最大数
	maxCommitMessages = 5
	// compare エンドポイントに渡すリビジョン識別子の短縮長
	revisionAbbrevLen = 7
)

// Service はリポジトリの到達確認と差分検出を提供する
type Service struct {
	client Client
	logger *slog.Logger
}

// NewService は新しい Service を作成する
func NewService(client Client, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Probe は1回のメタデータリクエストでリポジトリの到達可否を確認する
// 成功した場合、返されるメタデータは抽出処理にそのまま引き渡され、
// 同じ情報の再取得を避ける。最新リビジョンの取得失敗は致命的ではなく、
// マーカーを空のままにして処理を継続する
func (s *Service) Probe(ctx context.Context, loc Location, credential string) (*RepoMetadata, error) {
	meta, err := s.client.GetRepository(ctx, loc, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to probe repository %s: %w", loc, err)
	}

	s.logger.Info("repository probed",
		"location", loc.String(),
		"public", meta.IsPublic(),
		"language", meta.Language)

	if meta.DefaultBranch != "" {
		head, err := s.client.GetBranchHead(ctx, loc, meta.DefaultBranch, credential)
		if err != nil {
			s.logger.Warn("could not fetch latest revision marker",
				"location", loc.String(), "error", err)
		} else {
			meta.RevisionMarker = head
		}
	}

	return meta, nil
}

// DetectChanges は2つのリビジョン間の変更概要を返す
// 差分は生成結果を良くするための補助情報に過ぎないため、
// 取得に失敗した場合はリトライせず nil を返してジョブを継続させる
func (s *Service) DetectChanges(ctx context.Context, loc Location, oldRev, newRev, credential string) *ChangeSummary {
	if oldRev == "" || newRev == "" {
		return nil
	}

	cmp, err := s.client.CompareRevisions(ctx, loc,
		abbreviateRevision(oldRev), abbreviateRevision(newRev), credential)
	if err != nil {
		s.logger.Warn("could not compare revisions",
			"location", loc.String(), "error", err)
		return nil
	}

	summary := &ChangeSummary{
		FilesChanged: len(cmp.Files),
		CommitCount:  len(cmp.CommitMessages),
	}
	for i, f := range cmp.Files {
		if i >= maxChangedFiles {
			break
		}
		summary.ChangedFiles = append(summary.ChangedFiles, f)
	}
	for i, m := range cmp.CommitMessages {
		if i >= maxCommitMessages {
			break
		}
		summary.CommitMessages = append(summary.CommitMessages, firstLine(m))
	}

	s.logger.Info("revision comparison completed",
		"location", loc.String(),
		"files_changed", summary.FilesChanged,
		"commits", summary.CommitCount)

	return summary
}

// abbreviateRevision はリビジョン識別子を短縮形にする
func abbreviateRevision(rev string) string {
	if len(rev) > revisionAbbrevLen {
		return rev[:revisionAbbrevLen]
	}
	return rev
}

// firstLine はコミットメッセージの1行目のみを返す
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
