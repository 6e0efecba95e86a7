package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/jinford/readmegen/internal/core/hosting"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout はAPI呼び出し1回あたりのタイムアウト
	DefaultTimeout = 10 * time.Second

	// maxErrorBodyLen は診断用に保持する応答本文の最大文字数
	maxErrorBodyLen = 200

	// branchMaxRedirects はブランチ取得時に追従するリダイレクトの上限
	branchMaxRedirects = 3
)

// Config はGitHub APIクライアントの設定です
type Config struct {
	// Token は省略時に使うアクセストークン。呼び出しごとのクレデンシャルが優先されます
	Token string

	// BaseURL はAPIのベースURL。空の場合は api.github.com を使います
	BaseURL string

	// Timeout はAPI呼び出し1回あたりのタイムアウト
	Timeout time.Duration
}

// Client はGitHub REST APIによる hosting.Client の実装です
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient は新しいClientを作成します
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		timeout: timeout,
		logger:  logger,
	}
}

// GetRepository はリポジトリのメタデータを取得します
func (c *Client) GetRepository(ctx context.Context, loc hosting.Location, credential string) (*hosting.RepoMetadata, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	repo, _, err := api.Repositories.Get(ctx, loc.Owner, loc.Repo)
	if err != nil {
		return nil, mapError(loc, err)
	}

	return &hosting.RepoMetadata{
		Name:          repo.GetName(),
		Description:   repo.GetDescription(),
		Language:      repo.GetLanguage(),
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

// GetBranchHead はブランチ先頭のコミットSHAを取得します
func (c *Client) GetBranchHead(ctx context.Context, loc hosting.Location, branch, credential string) (string, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b, _, err := api.Repositories.GetBranch(ctx, loc.Owner, loc.Repo, branch, branchMaxRedirects)
	if err != nil {
		return "", mapError(loc, err)
	}

	return b.GetCommit().GetSHA(), nil
}

// CompareRevisions は2つのリビジョン間の比較結果を取得します
func (c *Client) CompareRevisions(ctx context.Context, loc hosting.Location, oldRev, newRev, credential string) (*hosting.RevisionComparison, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmp, _, err := api.Repositories.CompareCommits(ctx, loc.Owner, loc.Repo, oldRev, newRev, nil)
	if err != nil {
		return nil, mapError(loc, err)
	}

	comparison := &hosting.RevisionComparison{}
	for _, f := range cmp.Files {
		comparison.Files = append(comparison.Files, f.GetFilename())
	}
	for _, commit := range cmp.Commits {
		comparison.CommitMessages = append(comparison.CommitMessages, commit.GetCommit().GetMessage())
	}

	return comparison, nil
}

// api は呼び出しごとのクレデンシャルを反映したAPIクライアントを構築します。
// クレデンシャルが空の場合は設定のトークン、それも空なら未認証でアクセスします
func (c *Client) api(ctx context.Context, credential string) (*github.Client, error) {
	token := credential
	if token == "" {
		token = c.token
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	api := github.NewClient(httpClient)

	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API base URL: %w", err)
		}
		// go-github はベースURLの末尾スラッシュを要求する
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		api.BaseURL = u
	}

	return api, nil
}

// mapError はGitHub APIのエラーを失敗種別へ対応付けます。
// 404は非公開リポジトリの存在を隠すためNotFoundのまま扱い、
// 403はレート制限と権限不足を区別せずAccessDeniedに寄せます
func mapError(loc hosting.Location, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited on %s", hosting.ErrAccessDenied, loc)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary rate limit on %s", hosting.ErrAccessDenied, loc)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", hosting.ErrNotFound, loc)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", hosting.ErrInvalidCredential, loc)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", hosting.ErrAccessDenied, loc)
		default:
			return &hosting.UpstreamError{
				StatusCode: respErr.Response.StatusCode,
				Body:       truncateBody(respErr.Message),
			}
		}
	}

	return err
}

func truncateBody(s string) string {
	runes := []rune(s)
	if len(runes) <= maxErrorBodyLen {
		return s
	}
	return string(runes[:maxErrorBodyLen])
}

// インターフェース実装の確認
var _ hosting.Client = (*Client)(nil)
