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

	// RAGサービス間認証用の共有シークレット（空なら認証なし）
	SharedSecret string

	// OpenAI設定（Embeddings + Chat）
	OpenAI OpenAIConfig

	// 検索・生成パラメータ
	Retrieval RetrievalConfig

	// HTTPサーバ設定
	HTTPAddr string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	ChatModel          string
	Temperature        float64
}

// RetrievalConfig は検索・バックフィル関連の設定
type RetrievalConfig struct {
	// K はベクトル検索で取得する候補数のデフォルト値
	K int
	// BackfillBatchSize はEmbedding APIへ一度に送るテキスト数の上限
	BackfillBatchSize int
	// MaxIngredientNames は候補に添付する原材料名の上限
	MaxIngredientNames int
	// PromptTokenBudget はLLMへ渡すペイロードのトークン上限
	PromptTokenBudget int
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
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "meal_user"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "mealgen"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SharedSecret: getEnv("RAG_SHARED_SECRET", ""),
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("EMBED_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("EMBED_DIMENSION", 1536),
			ChatModel:          getEnv("CHAT_MODEL", "gpt-4.1-mini"),
			Temperature:        getEnvAsFloat("CHAT_TEMPERATURE", 0.4),
		},
		Retrieval: RetrievalConfig{
			K:                  getEnvAsInt("RETRIEVAL_K", 120),
			BackfillBatchSize:  getEnvAsInt("BACKFILL_BATCH_SIZE", 128),
			MaxIngredientNames: getEnvAsInt("MAX_INGREDIENT_NAMES", 30),
			PromptTokenBudget:  getEnvAsInt("PROMPT_TOKEN_BUDGET", 24000),
		},
		HTTPAddr: getEnv("HTTP_ADDR", ":8090"),
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
