package hosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveNormalization はURLの表記ゆれが同じ Location に解決されることを確認します
func TestResolveNormalization(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"素のURL", "https://github.com/octocat/hello-world"},
		{"末尾スラッシュ", "https://github.com/octocat/hello-world/"},
		{".gitサフィックス", "https://github.com/octocat/hello-world.git"},
		{".gitと末尾スラッシュ", "https://github.com/octocat/hello-world.git/"},
		{"前後の空白", "  https://github.com/octocat/hello-world  "},
		{"SCP形式", "git@github.com:octocat/hello-world.git"},
		{"ssh", "ssh://git@github.com/octocat/hello-world.git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Resolve(tt.url)
			require.NoError(t, err)
			assert.Equal(t, Location{Owner: "octocat", Repo: "hello-world"}, loc)
		})
	}
}

// TestResolveSuffixExactMatch は .git のアルファベットで終わる正当な名前が
// 壊れないことを確認します（サフィックス除去は完全一致のみ）
func TestResolveSuffixExactMatch(t *testing.T) {
	tests := []struct {
		url  string
		repo string
	}{
		{"https://github.com/user/mygit", "mygit"},
		{"https://github.com/user/tooling", "tooling"},
		{"https://github.com/user/spri.t", "spri.t"},
		{"https://github.com/user/repo.git", "repo"},
	}

	for _, tt := range tests {
		loc, err := Resolve(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.repo, loc.Repo, "url=%s", tt.url)
	}
}

// TestResolveIdempotent は正規形から再解決しても同じ Location になることを確認します
func TestResolveIdempotent(t *testing.T) {
	loc, err := Resolve("https://github.com/octocat/hello-world.git/")
	require.NoError(t, err)

	again, err := Resolve("https://github.com/" + loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, again)
}

// TestResolveDeepPathJoinsRepo はパス区切りを含む残りがリポジトリ名として
// 防御的に結合されることを確認します
func TestResolveDeepPathJoinsRepo(t *testing.T) {
	loc, err := Resolve("https://github.com/user/repo/tree/main")
	require.NoError(t, err)
	assert.Equal(t, "user", loc.Owner)
	assert.Equal(t, "repo/tree/main", loc.Repo)
}

// TestResolveInvalidInput は解決できない入力が ErrInvalidLocation で
// 失敗することを確認します
func TestResolveInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"空文字列", ""},
		{"空白のみ", "   "},
		{"スラッシュのみ", "///"},
		{"ドメインなしの相対パス", "user/repo"},
		{"パスなし", "https://github.com"},
		{"ownerのみ", "https://github.com/useronly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLocation)
		})
	}
}

// TestResolveNonConservativeNames は文字種の検証が助言に留まり、
// 拒否されないことを確認します
func TestResolveNonConservativeNames(t *testing.T) {
	loc, err := Resolve("https://github.com/ユーザー/リポジトリ")
	require.NoError(t, err)
	assert.Equal(t, "ユーザー", loc.Owner)
	assert.Equal(t, "リポジトリ", loc.Repo)
}
