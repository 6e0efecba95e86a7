package hosting

import (
	"fmt"
	"log/slog"
	"strings"

	giturls "github.com/whilp/git-urls"
)

// Resolve はリポジトリURLを Location に解決する
// 例: https://github.com/user/repo.git/ -> (user, repo)
// 例: git@github.com:user/repo.git -> (user, repo)
// 正規化済みの表現を再度渡しても同じ結果になる（冪等）
func Resolve(rawURL string) (Location, error) {
	url := strings.TrimSpace(rawURL)
	url = strings.TrimRight(url, "/")
	// 末尾の .git はサフィックス完全一致でのみ除去する
	// 1文字ずつの除去は g/i/t で終わる正当な名前を壊してしまう
	url = strings.TrimSuffix(url, ".git")

	if url == "" {
		return Location{}, fmt.Errorf("%w: empty URL", ErrInvalidLocation)
	}

	u, err := giturls.Parse(url)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, rawURL)
	}

	host := u.Hostname()
	if host == "" {
		host = u.Host
	}
	if host == "" {
		return Location{}, fmt.Errorf("%w: no hosting domain in %q", ErrInvalidLocation, rawURL)
	}

	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return Location{}, fmt.Errorf("%w: expected owner and repository in %q", ErrInvalidLocation, rawURL)
	}

	owner := parts[0]
	// リポジトリ名に / は想定しないが、含まれていた場合も壊さず結合する
	repo := strings.Join(parts[1:], "/")
	repo = strings.TrimSuffix(repo, ".git")

	if owner == "" || repo == "" {
		return Location{}, fmt.Errorf("%w: could not extract owner and repository from %q", ErrInvalidLocation, rawURL)
	}

	// ホスティング側は保守的な文字集合の外の文字も許容しているため、
	// 文字種の検証は警告に留めて拒否はしない
	if !isConservativeName(owner) || !isConservativeName(repo) {
		slog.Warn("repository name contains characters outside the conservative set",
			"owner", owner, "repo", repo)
	}

	return Location{Owner: owner, Repo: repo}, nil
}

func isConservativeName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
