package openai

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestNewGeneratorRequiresAPIKey はAPIキーなしの構築が拒否されることを確認します
func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Config{}, testLogger())
	require.ErrorIs(t, err, ErrAPIKeyNotSet)
}

// TestNewGeneratorDefaults は未指定の設定が既定値で補われることを確認します
func TestNewGeneratorDefaults(t *testing.T) {
	g, err := NewGenerator(Config{APIKey: "sk-test"}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, g.model)
	assert.Equal(t, DefaultTemperature, g.temperature)
	assert.Equal(t, DefaultMaxTokens, g.maxTokens)
	assert.Equal(t, DefaultMaxPromptTokens, g.maxPromptTokens)
	assert.Equal(t, DefaultTimeout, g.timeout)
}

// TestNewGeneratorOverrides は明示した設定値が優先されることを確認します
func TestNewGeneratorOverrides(t *testing.T) {
	g, err := NewGenerator(Config{
		APIKey:          "sk-test",
		Model:           "gpt-4o",
		Temperature:     0.2,
		MaxTokens:       512,
		MaxPromptTokens: 2000,
		Timeout:         30 * time.Second,
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", g.model)
	assert.Equal(t, 0.2, g.temperature)
	assert.Equal(t, 512, g.maxTokens)
	assert.Equal(t, 2000, g.maxPromptTokens)
	assert.Equal(t, 30*time.Second, g.timeout)
}

// TestCountTokensFallback はエンコーダがない場合の単語数からの概算を確認します
func TestCountTokensFallback(t *testing.T) {
	g := &Generator{logger: testLogger()}

	assert.Equal(t, 5, g.countTokens("alpha beta gamma delta"))
	assert.Equal(t, 13, g.countTokens(strings.TrimSpace(strings.Repeat("word ", 10))))
	assert.Zero(t, g.countTokens(""))
}

// TestIsRateLimitError は429応答だけがリトライ対象と判定されることを確認します
func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "429はリトライ対象", err: &openai.Error{StatusCode: 429}, want: true},
		{name: "ラップされた429も判定できる", err: fmt.Errorf("call failed: %w", &openai.Error{StatusCode: 429}), want: true},
		{name: "500は対象外", err: &openai.Error{StatusCode: 500}, want: false},
		{name: "APIエラー以外は対象外", err: errors.New("network down"), want: false},
		{name: "nilは対象外", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimitError(tt.err))
		})
	}
}
