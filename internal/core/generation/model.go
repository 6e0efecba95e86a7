package generation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/readmegen/internal/core/hosting"
)

// Status はジョブの状態を表します。
// Pending → Processing → {Completed, Failed} の一方向にのみ遷移し、
// 終端状態に達したジョブが別の状態に戻ることはありません。
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// String はストアに永続化される文字列表現を返します
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// IsTerminal は終端状態(Completed/Failed)かどうかを返します
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MarshalJSON は文字列表現でシリアライズします
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ParseStatus はストアの文字列表現をStatusに変換します。
// 既知の4値以外はエラーになります。
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "pending":
		return StatusPending, nil
	case "processing":
		return StatusProcessing, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown job status: %q", raw)
	}
}

// InputKind はジョブの入力種別を表します
type InputKind int

const (
	// InputRemoteURL はリモートリポジトリURLからの生成
	InputRemoteURL InputKind = iota
	// InputArchiveUpload はアップロードされたアーカイブからの生成
	InputArchiveUpload
)

// String はストアに永続化される文字列表現を返します
func (k InputKind) String() string {
	switch k {
	case InputRemoteURL:
		return "remote_url"
	case InputArchiveUpload:
		return "archive_upload"
	default:
		return fmt.Sprintf("input_kind(%d)", int(k))
	}
}

// MarshalJSON は文字列表現でシリアライズします
func (k InputKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// ParseInputKind はストアの文字列表現をInputKindに変換します
func ParseInputKind(raw string) (InputKind, error) {
	switch raw {
	case "remote_url":
		return InputRemoteURL, nil
	case "archive_upload":
		return InputArchiveUpload, nil
	default:
		return 0, fmt.Errorf("unknown input kind: %q", raw)
	}
}

// Job はドキュメント生成ジョブを表します。
// Result は Completed では生成済みドキュメント本文、Failed では
// 人間が読める失敗メッセージを保持します(エラー専用カラムは持ちません)。
type Job struct {
	ID             uuid.UUID         `json:"id"`
	SessionID      string            `json:"sessionID"`
	InputKind      InputKind         `json:"inputKind"`
	SourceURL      string            `json:"sourceURL,omitempty"`
	ArchivePath    string            `json:"archivePath,omitempty"`
	Location       *hosting.Location `json:"location,omitempty"`
	Status         Status            `json:"status"`
	Result         *string           `json:"result,omitempty"`
	RevisionMarker *string           `json:"revisionMarker,omitempty"`
	Downloaded     bool              `json:"downloaded"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// NewRemoteJob はリモートリポジトリに対するPendingジョブを作成します
func NewRemoteJob(sessionID, sourceURL string, loc hosting.Location) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		SessionID: sessionID,
		InputKind: InputRemoteURL,
		SourceURL: sourceURL,
		Location:  &loc,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewArchiveJob はアップロード済みアーカイブに対するPendingジョブを作成します
func NewArchiveJob(sessionID, archivePath string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		SessionID:   sessionID,
		InputKind:   InputArchiveUpload,
		ArchivePath: archivePath,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
