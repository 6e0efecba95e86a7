package hosting

import (
	"errors"
	"fmt"
)

// 到達確認と場所解決の失敗種別
// 401 と 403 は意味が異なるため、決して同一視してはならない
var (
	// ErrInvalidLocation はリポジトリURLとして解釈できない入力を表す
	ErrInvalidLocation = errors.New("invalid repository location")

	// ErrNotFound はリポジトリが見つからないことを表す
	// ホスティング側は非公開リポジトリの存在を404で隠すため、
	// 「存在しない」と「権限がない」はこのエラーでは区別できない
	ErrNotFound = errors.New("repository not found")

	// ErrInvalidCredential は認証情報が無効であること（401）を表す
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrAccessDenied はアクセス拒否（403）を表す
	// レート制限と権限不足はステータスコードからは区別できない
	ErrAccessDenied = errors.New("access denied")
)

// UpstreamError はホスティングAPIからの想定外の応答を表す
// 診断のためにステータスコードと応答本文の先頭部分を保持する
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("unexpected upstream response: status=%d body=%s", e.StatusCode, e.Body)
}
