package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/core/hosting"
	"github.com/jinford/readmegen/internal/platform/database"
)

// jobColumns は読み書きで共有するカラム並び
const jobColumns = `id, session_id, input_kind, source_url, archive_path, owner, repo, status, result, revision_marker, downloaded, created_at, updated_at`

const schemaDDL = `
CREATE TABLE IF NOT EXISTS generation_jobs (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	input_kind TEXT NOT NULL,
	source_url TEXT,
	archive_path TEXT,
	owner TEXT,
	repo TEXT,
	status TEXT NOT NULL,
	result TEXT,
	revision_marker TEXT,
	downloaded BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_location ON generation_jobs (owner, repo, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs (status)`

// JobStore は generation.Store インターフェースを実装する PostgreSQL ストアです。
// 状態は内部では閉じた列挙型、テーブル上では文字列として持ち、
// 変換はこの境界でのみ行います
type JobStore struct {
	pool       *pgxpool.Pool
	txProvider *database.TransactionProvider
	dsn        string
	logger     *slog.Logger
}

// NewJobStore は新しい JobStore を作成します。
// dsn はフォールバック用の新規接続を開くために保持します
func NewJobStore(pool *pgxpool.Pool, dsn string, logger *slog.Logger) *JobStore {
	return &JobStore{
		pool:       pool,
		txProvider: database.NewTransactionProvider(pool),
		dsn:        dsn,
		logger:     logger,
	}
}

// Migrate はジョブテーブルを作成します。既に存在する場合は何もしません
func (s *JobStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure job table: %w", err)
	}
	s.logger.Debug("Job table ensured")
	return nil
}

// Create はジョブを挿入し、保存後のジョブを返します
func (s *JobStore) Create(ctx context.Context, job *generation.Job) (*generation.Job, error) {
	owner, repo := locationTexts(job)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+jobColumns,
		UUIDToPgtype(job.ID),
		job.SessionID,
		job.InputKind.String(),
		StringToNullableText(job.SourceURL),
		StringToNullableText(job.ArchivePath),
		owner,
		repo,
		job.Status.String(),
		StringPtrToPgtext(job.Result),
		StringPtrToPgtext(job.RevisionMarker),
		job.Downloaded,
		TimeToPgtype(job.CreatedAt),
		TimeToPgtype(job.UpdatedAt),
	)

	created, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return created, nil
}

// Get はIDでジョブを取得します
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*generation.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`,
		UUIDToPgtype(id),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", generation.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update は行ロックの下でジョブを読み出し、mutateを適用して書き戻します。
// 永続化されるのは status / result / revision_marker / downloaded と更新日時です
func (s *JobStore) Update(ctx context.Context, id uuid.UUID, mutate func(job *generation.Job)) (*generation.Job, error) {
	return database.Transact(ctx, s.txProvider, func(tx pgx.Tx) (*generation.Job, error) {
		row := tx.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1 FOR UPDATE`,
			UUIDToPgtype(id),
		)

		job, err := scanJob(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", generation.ErrJobNotFound, id)
			}
			return nil, fmt.Errorf("failed to load job for update: %w", err)
		}

		mutate(job)
		job.UpdatedAt = time.Now().UTC()

		if _, err := tx.Exec(ctx, `
			UPDATE generation_jobs
			SET status = $2, result = $3, revision_marker = $4, downloaded = $5, updated_at = $6
			WHERE id = $1`,
			UUIDToPgtype(id),
			job.Status.String(),
			StringPtrToPgtext(job.Result),
			StringPtrToPgtext(job.RevisionMarker),
			job.Downloaded,
			TimeToPgtype(job.UpdatedAt),
		); err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}

		return job, nil
	})
}

// FindLatestCompleted は同じ位置で Completed に到達し、リビジョンマーカーを持つ
// 直近のジョブを返します
func (s *JobStore) FindLatestCompleted(ctx context.Context, loc hosting.Location) (*generation.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		WHERE owner = $1 AND repo = $2 AND status = $3 AND revision_marker IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		loc.Owner,
		loc.Repo,
		generation.StatusCompleted.String(),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no completed job for %s", generation.ErrJobNotFound, loc)
		}
		return nil, fmt.Errorf("failed to find latest completed job: %w", err)
	}
	return job, nil
}

// MarkDownloaded はダウンロード済みフラグを立てます
func (s *JobStore) MarkDownloaded(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_jobs
		SET downloaded = TRUE, updated_at = $2
		WHERE id = $1`,
		UUIDToPgtype(id),
		TimeToPgtype(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to mark job as downloaded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", generation.ErrJobNotFound, id)
	}
	return nil
}

// Reopen は既存のプールとは独立した新しい接続プールでストアを開きます。
// 返されたクリーンアップ関数が新しいプールを閉じます
func (s *JobStore) Reopen(ctx context.Context) (generation.Store, func(), error) {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open fresh store connection: %w", err)
	}
	return NewJobStore(pool, s.dsn, s.logger), pool.Close, nil
}

// locationTexts はジョブの位置をnullableなカラム値へ変換します
func locationTexts(job *generation.Job) (owner, repo pgtype.Text) {
	if job.Location == nil {
		return pgtype.Text{}, pgtype.Text{}
	}
	return StringToNullableText(job.Location.Owner), StringToNullableText(job.Location.Repo)
}

// scanJob は1行をドメインのジョブへ変換します。
// 状態と入力種別の文字列はここで閉じた列挙型へ検証変換されます
func scanJob(row pgx.Row) (*generation.Job, error) {
	var (
		id             pgtype.UUID
		sessionID      string
		inputKind      string
		sourceURL      pgtype.Text
		archivePath    pgtype.Text
		owner          pgtype.Text
		repo           pgtype.Text
		status         string
		result         pgtype.Text
		revisionMarker pgtype.Text
		downloaded     bool
		createdAt      pgtype.Timestamp
		updatedAt      pgtype.Timestamp
	)

	if err := row.Scan(
		&id,
		&sessionID,
		&inputKind,
		&sourceURL,
		&archivePath,
		&owner,
		&repo,
		&status,
		&result,
		&revisionMarker,
		&downloaded,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsedStatus, err := generation.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("failed to read job row: %w", err)
	}
	parsedKind, err := generation.ParseInputKind(inputKind)
	if err != nil {
		return nil, fmt.Errorf("failed to read job row: %w", err)
	}

	job := &generation.Job{
		ID:             PgtypeToUUID(id),
		SessionID:      sessionID,
		InputKind:      parsedKind,
		SourceURL:      PgtextToString(sourceURL),
		ArchivePath:    PgtextToString(archivePath),
		Status:         parsedStatus,
		Result:         PgtextToStringPtr(result),
		RevisionMarker: PgtextToStringPtr(revisionMarker),
		Downloaded:     downloaded,
		CreatedAt:      PgtypeToTime(createdAt),
		UpdatedAt:      PgtypeToTime(updatedAt),
	}
	if owner.Valid && repo.Valid {
		job.Location = &hosting.Location{Owner: owner.String, Repo: repo.String}
	}

	return job, nil
}

// コンパイル時の型チェック
var (
	_ generation.Store    = (*JobStore)(nil)
	_ generation.Reopener = (*JobStore)(nil)
)
