package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jinford/readmegen/internal/core/extraction"
	"github.com/jinford/readmegen/internal/core/generation"
	"github.com/jinford/readmegen/internal/core/hosting"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// DefaultTemperature は生成時のデフォルト温度
	DefaultTemperature = 0.7

	// DefaultMaxTokens は応答側のトークン上限
	DefaultMaxTokens = 4000

	// DefaultMaxPromptTokens はプロンプト側のトークン予算
	DefaultMaxPromptTokens = 8000

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrEmptyCompletion は応答に選択肢が含まれない場合のエラー
	ErrEmptyCompletion = errors.New("no completion choices returned")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Config はGeneratorの設定です
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	MaxPromptTokens int
	Timeout         time.Duration
}

// Generator は OpenAI API による generation.Generator の実装です
type Generator struct {
	client          openai.Client
	model           string
	temperature     float64
	maxTokens       int
	maxPromptTokens int
	timeout         time.Duration
	encoder         *tiktoken.Tiktoken
	logger          *slog.Logger
}

// NewGenerator は新しいGeneratorを作成します
func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxPromptTokens := cfg.MaxPromptTokens
	if maxPromptTokens <= 0 {
		maxPromptTokens = DefaultMaxPromptTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	// エンコーダを用意できない環境では概算にフォールバックする
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("Failed to load tokenizer, falling back to rough token estimate",
			"model", model,
			"error", err,
		)
		encoder = nil
	}

	return &Generator{
		client:          openai.NewClient(opts...),
		model:           model,
		temperature:     temperature,
		maxTokens:       maxTokens,
		maxPromptTokens: maxPromptTokens,
		timeout:         timeout,
		encoder:         encoder,
		logger:          logger,
	}, nil
}

// Generate はサンプルと変更概要からREADME本文を生成します。
// 出力が見出しで始まらない場合はプロジェクト名の見出しを先頭に補います
func (g *Generator) Generate(ctx context.Context, sample *extraction.RepositorySample, changes *hosting.ChangeSummary) (string, error) {
	prompt := g.budgetedPrompt(sample, changes)

	g.logger.Info("Generating README",
		"model", g.model,
		"promptTokens", g.countTokens(prompt),
		"promptLength", len(prompt),
	)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	content, err := g.generateWithRetry(ctx, prompt)
	if err != nil {
		return "", err
	}

	g.logger.Info("README generated",
		"length", len(content),
		"duration", time.Since(start),
	)

	if !strings.HasPrefix(strings.TrimSpace(content), "#") {
		name := sample.Name
		if name == "" {
			name = "Project"
		}
		content = fmt.Sprintf("# %s\n\n%s", name, content)
	}

	return content, nil
}

func (g *Generator) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(g.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(g.temperature),
		}
		if g.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(g.maxTokens))
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				g.logger.Warn("OpenAI API rate limited, backing off", "attempt", attempt+1)
				continue
			}

			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", ErrEmptyCompletion
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// countTokens はプロンプトのトークン数を数えます。
// エンコーダがない場合は単語数からの概算で代用します
func (g *Generator) countTokens(text string) int {
	if g.encoder == nil {
		return len(strings.Fields(text)) * 13 / 10
	}
	return len(g.encoder.Encode(text, nil, nil))
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// インターフェース実装の確認
var _ generation.Generator = (*Generator)(nil)
