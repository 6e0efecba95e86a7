package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// GitHub API設定
	GitHub GitHubConfig

	// README生成用LLM設定
	OpenAI OpenAIConfig

	// アーカイブアップロード設定
	Archive ArchiveConfig

	// 抽出処理の上限設定
	Extraction ExtractionConfig

	// ジョブワーカー設定
	Worker WorkerConfig
}

// DatabaseConfig はデータベース接続設定
// URL が指定されている場合は個別項目より優先されます
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN は接続文字列を返します
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GitHubConfig はGitHub API設定
type GitHubConfig struct {
	Token          string
	APIBaseURL     string // 空の場合は api.github.com
	TimeoutSeconds int    // APIコール1回あたりのタイムアウト
}

// OpenAIConfig はREADME生成用のOpenAI API設定
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// ArchiveConfig はZIPアップロードの取り扱い設定
type ArchiveConfig struct {
	// 展開後サイズの合計上限（バイト）
	MaxUncompressedBytes int64
	// アップロードファイルの保管ディレクトリ（空の場合は uploads/）
	UploadDir string
}

// ExtractionConfig はリポジトリ抽出の上限設定
type ExtractionConfig struct {
	MaxFiles       int
	MaxDepth       int
	MaxConfigBytes int
	MaxSourceBytes int
}

// WorkerConfig は生成ジョブのワーカープール設定
type WorkerConfig struct {
	Count         int
	QueueCapacity int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "readmegen"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "readmegen"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			APIBaseURL:     getEnv("GITHUB_API_BASE_URL", ""),
			TimeoutSeconds: getEnvAsInt("GITHUB_TIMEOUT_SECONDS", 10),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"), // デフォルトはgpt-4o-mini
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 4000),
		},
		Archive: ArchiveConfig{
			MaxUncompressedBytes: int64(getEnvAsInt("ARCHIVE_MAX_UNCOMPRESSED_MB", 100)) * 1024 * 1024,
			UploadDir:            getEnv("ARCHIVE_UPLOAD_DIR", ""),
		},
		Extraction: ExtractionConfig{
			MaxFiles:       getEnvAsInt("EXTRACT_MAX_FILES", 50),
			MaxDepth:       getEnvAsInt("EXTRACT_MAX_DEPTH", 4),
			MaxConfigBytes: getEnvAsInt("EXTRACT_MAX_CONFIG_BYTES", 5000),
			MaxSourceBytes: getEnvAsInt("EXTRACT_MAX_SOURCE_BYTES", 3000),
		},
		Worker: WorkerConfig{
			Count:         getEnvAsInt("WORKER_COUNT", 4),
			QueueCapacity: getEnvAsInt("JOB_QUEUE_CAPACITY", 64),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
