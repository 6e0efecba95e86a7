package generation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jinford/readmegen/internal/core/hosting"
)

// ErrJobNotFound は指定されたジョブが存在しないことを表します
var ErrJobNotFound = errors.New("job not found")

// Store はジョブの永続化ポートです。
// 各ジョブは自分自身のレコードだけを更新するため、レコード単位の
// 排他以外の調整は要求しません。
type Store interface {
	// Create はジョブを永続化し、保存後のジョブを返します
	Create(ctx context.Context, job *Job) (*Job, error)

	// Get はIDでジョブを取得します。存在しない場合はErrJobNotFoundを返します
	Get(ctx context.Context, id uuid.UUID) (*Job, error)

	// Update はジョブを読み出してmutateを適用し、結果を永続化します。
	// 存在しない場合はErrJobNotFoundを返します
	Update(ctx context.Context, id uuid.UUID, mutate func(job *Job)) (*Job, error)

	// FindLatestCompleted は同じ位置に対して Completed に到達し、かつ
	// リビジョンマーカーを持つ直近のジョブを返します(作成日時の降順で先頭)。
	// 該当がない場合はErrJobNotFoundを返します
	FindLatestCompleted(ctx context.Context, loc hosting.Location) (*Job, error)

	// MarkDownloaded はダウンロード済みフラグを立てます。
	// 終端状態に達したジョブに対して許される唯一の変更です
	MarkDownloaded(ctx context.Context, id uuid.UUID) error
}

// Reopener は既存の接続とは独立した新しいストア接続を開く能力です。
// Failed への更新自体が失敗した場合の最終手段として使われます。
// 返されたクリーンアップ関数は使用後に必ず呼び出してください。
type Reopener interface {
	Reopen(ctx context.Context) (Store, func(), error)
}
