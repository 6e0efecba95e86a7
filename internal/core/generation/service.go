package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jinford/readmegen/internal/core/extraction"
	"github.com/jinford/readmegen/internal/core/hosting"
)

// Generator は抽出済みサンプルからドキュメント本文を生成する外部コラボレーターです。
// 呼び出しは遅く、失敗しうるものとして扱います。changes はnil可です。
type Generator interface {
	Generate(ctx context.Context, sample *extraction.RepositorySample, changes *hosting.ChangeSummary) (string, error)
}

// RemoteTreeOpener は解決済みの位置に対するリモートツリーソースを開きます。
// 実際のAPI呼び出しは走査時まで遅延されます。
type RemoteTreeOpener interface {
	OpenTree(loc hosting.Location, credential string) extraction.TreeSource
}

// ExtractedTree はアーカイブの展開結果を表します
type ExtractedTree struct {
	// Source は展開先ディレクトリを読むツリーソース
	Source extraction.TreeSource
	// Name は推定されたプロジェクト名(ルートディレクトリ名またはファイル名由来)
	Name string
	// Root は展開先ディレクトリのパス
	Root string
}

// ArchiveExtractor はアップロードされたアーカイブの受け入れ・検証・展開を担います
type ArchiveExtractor interface {
	// Stage は提出されたアーカイブを管理ディレクトリへ取り込み、取り込み先パスを返します
	Stage(ctx context.Context, srcPath string) (string, error)

	// Extract はアーカイブを検証して展開します。
	// 非圧縮サイズの合計が上限を超える場合や壊れたアーカイブは展開せずに失敗します
	Extract(ctx context.Context, archivePath string) (*ExtractedTree, error)

	// Cleanup は展開ツリーとアーカイブ本体をできる限り削除します。treeはnil可です
	Cleanup(archivePath string, tree *ExtractedTree)
}

// Service はドキュメント生成ジョブのビジネスフローを統括します
type Service struct {
	// ドメインポート
	store     Store
	generator Generator
	remote    RemoteTreeOpener
	archive   ArchiveExtractor

	// コアサービス
	hosting *hosting.Service
	walker  *extraction.Walker

	// 技術基盤
	scheduler Scheduler
	logger    *slog.Logger
}

// NewService は新しいServiceを作成します
func NewService(
	store Store,
	generator Generator,
	remote RemoteTreeOpener,
	archive ArchiveExtractor,
	hostingSvc *hosting.Service,
	walker *extraction.Walker,
	scheduler Scheduler,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		generator: generator,
		remote:    remote,
		archive:   archive,
		hosting:   hostingSvc,
		walker:    walker,
		scheduler: scheduler,
		logger:    logger,
	}
}

// SubmitRemoteParams はリモートリポジトリに対する提出パラメータです
type SubmitRemoteParams struct {
	URL        string
	SessionID  string
	Credential string
}

// SubmitRemote はリモートリポジトリへの生成ジョブを提出します。
// 位置の解決と到達性の確認はこの場で同期的に行い、失敗はジョブを作らずに
// そのまま呼び出し元へ返します。検証を通過したジョブはPendingで永続化され、
// 処理はスケジューラへ引き渡されます(呼び出し元は完了を待ちません)。
func (s *Service) SubmitRemote(ctx context.Context, params SubmitRemoteParams) (*Job, error) {
	if params.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if params.SessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	loc, err := hosting.Resolve(params.URL)
	if err != nil {
		return nil, err
	}

	if _, err := s.hosting.Probe(ctx, loc, params.Credential); err != nil {
		return nil, err
	}

	job, err := s.store.Create(ctx, NewRemoteJob(params.SessionID, params.URL, loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Generation job submitted",
		"jobID", job.ID,
		"location", loc.String(),
		"sessionID", job.SessionID,
	)

	s.scheduler.Schedule(WorkItem{JobID: job.ID, Credential: params.Credential})

	return job, nil
}

// SubmitArchiveParams はアーカイブに対する提出パラメータです
type SubmitArchiveParams struct {
	ArchivePath string
	SessionID   string
}

// SubmitArchive はアップロードされたアーカイブへの生成ジョブを提出します。
// 同期的に行うのはアーカイブの取り込みだけで、検証と展開の失敗は
// ジョブのFailedとして非同期に記録されます。
func (s *Service) SubmitArchive(ctx context.Context, params SubmitArchiveParams) (*Job, error) {
	if params.ArchivePath == "" {
		return nil, fmt.Errorf("archivePath is required")
	}
	if params.SessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	staged, err := s.archive.Stage(ctx, params.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stage archive: %w", err)
	}

	job, err := s.store.Create(ctx, NewArchiveJob(params.SessionID, staged))
	if err != nil {
		s.archive.Cleanup(staged, nil)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Generation job submitted",
		"jobID", job.ID,
		"archive", staged,
		"sessionID", job.SessionID,
	)

	s.scheduler.Schedule(WorkItem{JobID: job.ID})

	return job, nil
}

// GetJob はIDでジョブを取得します
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// MarkDownloaded はジョブのダウンロード済みフラグを立てます
func (s *Service) MarkDownloaded(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MarkDownloaded(ctx, id); err != nil {
		return fmt.Errorf("failed to mark job as downloaded: %w", err)
	}
	return nil
}

// Process はジョブの状態機械を実行します。失敗はすべてジョブのFailed状態として
// 記録されるため、エラーを返しません。周囲のプロセスを落とさないことが最優先です。
func (s *Service) Process(ctx context.Context, item WorkItem) {
	logger := s.logger.With("jobID", item.JobID)

	job, err := s.store.Get(ctx, item.JobID)
	if err != nil {
		// ジョブ本体を読めない場合は更新対象がないため、記録だけ残して抜ける
		logger.Error("Failed to load job, nothing to update", "error", err)
		return
	}
	if job.Status != StatusPending {
		logger.Warn("Job is not pending, skipping", "status", job.Status)
		return
	}

	// 外部呼び出しを始める前にProcessingを永続化する。
	// ここでクラッシュしてもProcessingのまま残ったジョブとして観測できる
	job, err = s.store.Update(ctx, item.JobID, func(j *Job) {
		j.Status = StatusProcessing
	})
	if err != nil {
		logger.Error("Failed to mark job as processing", "error", err)
		return
	}

	logger.Info("Processing generation job",
		"inputKind", job.InputKind,
		"sessionID", job.SessionID,
	)

	document, marker, err := s.run(ctx, job, item.Credential, logger)
	if err != nil {
		s.fail(ctx, item.JobID, err, logger)
		return
	}

	if _, err := s.store.Update(ctx, item.JobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = &document
		if marker != "" {
			j.RevisionMarker = &marker
		}
	}); err != nil {
		logger.Error("Failed to persist completed state", "error", err)
		s.fail(ctx, item.JobID, fmt.Errorf("failed to persist completed state: %w", err), logger)
		return
	}

	logger.Info("Generation job completed", "documentLength", len(document))
}

// run は入力種別ごとの処理本体を実行し、生成されたドキュメントと
// リビジョンマーカー(リモートのみ)を返します
func (s *Service) run(ctx context.Context, job *Job, credential string, logger *slog.Logger) (string, string, error) {
	switch job.InputKind {
	case InputRemoteURL:
		return s.runRemote(ctx, job, credential, logger)
	case InputArchiveUpload:
		document, err := s.runArchive(ctx, job)
		return document, "", err
	default:
		return "", "", fmt.Errorf("unknown input kind: %s", job.InputKind)
	}
}

func (s *Service) runRemote(ctx context.Context, job *Job, credential string, logger *slog.Logger) (string, string, error) {
	// 1. 位置の解決
	loc, err := hosting.Resolve(job.SourceURL)
	if err != nil {
		return "", "", err
	}

	// 2. 到達性の確認とメタデータ取得
	meta, err := s.hosting.Probe(ctx, loc, credential)
	if err != nil {
		return "", "", err
	}

	// 3. ツリー走査
	source := s.remote.OpenTree(loc, credential)
	sample, err := s.walker.Walk(ctx, source, extraction.Metadata{
		Name:            meta.Name,
		Description:     meta.Description,
		PrimaryLanguage: meta.Language,
		RevisionMarker:  meta.RevisionMarker,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to walk repository tree: %w", err)
	}

	// 4. 差分バイアス(マーカーを持つ場合のみ)
	changes := s.detectChanges(ctx, loc, meta.RevisionMarker, credential, logger)

	// 5. 生成
	document, err := s.generator.Generate(ctx, sample, changes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate document: %w", err)
	}

	return document, meta.RevisionMarker, nil
}

func (s *Service) runArchive(ctx context.Context, job *Job) (string, error) {
	// 2. アーカイブの検証と展開(位置の解決はアーカイブでは不要)
	tree, err := s.archive.Extract(ctx, job.ArchivePath)

	// 展開ツリーとアーカイブ本体は成功・失敗を問わず必ず片付ける
	defer s.archive.Cleanup(job.ArchivePath, tree)

	if err != nil {
		return "", fmt.Errorf("failed to extract archive: %w", err)
	}

	// 3. ツリー走査(主要言語はサンプル内容から推定される)
	sample, err := s.walker.Walk(ctx, tree.Source, extraction.Metadata{Name: tree.Name})
	if err != nil {
		return "", fmt.Errorf("failed to walk extracted tree: %w", err)
	}

	// 5. 生成(アーカイブにはリビジョンマーカーがないため差分バイアスなし)
	document, err := s.generator.Generate(ctx, sample, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate document: %w", err)
	}

	return document, nil
}

// detectChanges は直近のCompletedジョブとリビジョンマーカーを比較し、
// 差分バイアス用のサマリを返します。比較できない場合はnilを返し、生成自体は続行します
func (s *Service) detectChanges(ctx context.Context, loc hosting.Location, marker, credential string, logger *slog.Logger) *hosting.ChangeSummary {
	if marker == "" {
		return nil
	}

	prior, err := s.store.FindLatestCompleted(ctx, loc)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			logger.Warn("Failed to look up prior completed job", "error", err)
		}
		return nil
	}
	if prior.RevisionMarker == nil {
		return nil
	}

	if *prior.RevisionMarker == marker {
		// キャッシュヒットでも生成は省略しない。差分バイアスだけを外す
		logger.Info("Revision marker unchanged, generating fresh README without diff bias",
			"revision", marker,
		)
		return nil
	}

	return s.hosting.DetectChanges(ctx, loc, *prior.RevisionMarker, marker, credential)
}

// fail はジョブをFailedへ遷移させ、失敗メッセージを結果フィールドに記録します。
// 更新自体が失敗した場合は新しいストア接続で一度だけ再試行し、それでも
// 失敗したときはログに残して握りつぶします
func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error, logger *slog.Logger) {
	logger.Error("Generation job failed", "error", cause)

	message := fmt.Sprintf("generation failed: %v", cause)
	mutate := func(j *Job) {
		j.Status = StatusFailed
		j.Result = &message
	}

	_, err := s.store.Update(ctx, id, mutate)
	if err == nil {
		return
	}
	logger.Error("Failed to persist failed state", "error", err)

	reopener, ok := s.store.(Reopener)
	if !ok {
		return
	}

	fresh, cleanup, err := reopener.Reopen(ctx)
	if err != nil {
		logger.Error("Failed to reopen store for failure fallback", "error", err)
		return
	}
	defer cleanup()

	if _, err := fresh.Update(ctx, id, mutate); err != nil {
		logger.Error("Failed to persist failed state on fresh connection", "error", err)
	}
}
