package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mealgen/rag-service/internal/core/embedding"
	"github.com/mealgen/rag-service/internal/core/planner"
	"github.com/mealgen/rag-service/internal/core/retrieval"
	"github.com/mealgen/rag-service/internal/infra/openai"
	"github.com/mealgen/rag-service/internal/infra/postgres"
	"github.com/mealgen/rag-service/internal/infra/tokenizer"
	"github.com/mealgen/rag-service/internal/platform/logger"
	"github.com/mealgen/rag-service/pkg/config"
	"github.com/mealgen/rag-service/pkg/db"
	"github.com/mealgen/rag-service/pkg/lock"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config   *config.Config
	Database *db.DB
	Logger   *slog.Logger

	Backfill *embedding.BackfillService
	Planner  *planner.Service
}

// NewAppContext は設定ファイルを読み込み、DBに接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.DefaultConfig())

	database, err := db.New(ctx, db.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	repo := postgres.NewCatalogRepository(database.Pool)

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	chatClient, err := openai.NewChatClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("チャットクライアントの初期化に失敗: %w", err)
	}

	counter, err := tokenizer.NewTokenCounter()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("トークナイザの初期化に失敗: %w", err)
	}

	backfillSvc := embedding.NewBackfillService(repo, embedder,
		embedding.WithBackfillBatchSize(cfg.Retrieval.BackfillBatchSize),
		embedding.WithBackfillLocker(lock.NewPostgresLocker(database.Pool)),
		embedding.WithBackfillLogger(appLogger),
	)

	retrievalSvc := retrieval.NewService(repo,
		retrieval.WithMaxIngredientNames(cfg.Retrieval.MaxIngredientNames),
		retrieval.WithLogger(appLogger),
	)

	plannerSvc := planner.NewService(embedder, chatClient, retrievalSvc, planner.NewVerifier(repo),
		planner.WithRetrievalK(cfg.Retrieval.K),
		planner.WithTemperature(cfg.OpenAI.Temperature),
		planner.WithTokenCounter(counter, cfg.Retrieval.PromptTokenBudget),
		planner.WithPlannerLogger(appLogger),
	)

	return &AppContext{
		Config:   cfg,
		Database: database,
		Logger:   appLogger,
		Backfill: backfillSvc,
		Planner:  plannerSvc,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Database != nil {
		ac.Database.Close()
	}
}
