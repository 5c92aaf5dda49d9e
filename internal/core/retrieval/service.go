package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mealgen/rag-service/internal/core/catalog"
)

// DefaultK は候補数未指定時の既定値
const DefaultK = 120

// Repository はベクトル検索とエンリッチメント取得を提供する
type Repository interface {
	// SearchCandidates はstoreのアイテムをコサイン距離の昇順でk件まで返す
	// Embedding済みのアイテムが無ければ空スライスを返す（エラーではない）
	SearchCandidates(ctx context.Context, store string, queryVector []float32, k int) ([]catalog.Candidate, error)
	// GetNutritionRows は指定IDの栄養行を返す（1 IDにつき最大1行）
	GetNutritionRows(ctx context.Context, itemIDs []int64) ([]catalog.EnrichmentRow, error)
	// GetIngredientsRows は指定IDの原材料行を返す（1 IDにつき最大1行）
	GetIngredientsRows(ctx context.Context, itemIDs []int64) ([]catalog.EnrichmentRow, error)
}

// Service は候補検索とエンリッチメントのマージを提供する
type Service struct {
	repo               Repository
	maxIngredientNames int
	logger             *slog.Logger
}

// Option はServiceのオプション設定
type Option func(*Service)

// WithMaxIngredientNames は候補に添付する原材料名の上限を設定する
func WithMaxIngredientNames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIngredientNames = n
		}
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい検索サービスを作成する
func NewService(repo Repository, opts ...Option) *Service {
	svc := &Service{
		repo:               repo,
		maxIngredientNames: catalog.DefaultMaxIngredientNames,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Retrieve はクエリベクトルに近い候補をk件まで取得し、栄養・原材料の
// コンパクト射影をマージして返す。エンリッチメントが無い候補のフィールドは
// nilのままとなり、エラーにはしない。空の結果は「未準備」を意味する有効な
// 戻り値で、呼び出し側が解釈する。
func (s *Service) Retrieve(ctx context.Context, store string, queryVector []float32, k int) ([]catalog.Candidate, error) {
	if store == "" {
		return nil, fmt.Errorf("store is required")
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}
	if k <= 0 {
		k = DefaultK
	}

	candidates, err := s.repo.SearchCandidates(ctx, store, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	nutrition, err := s.repo.GetNutritionRows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nutrition rows: %w", err)
	}
	ingredients, err := s.repo.GetIngredientsRows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ingredients rows: %w", err)
	}

	nutritionByID := make(map[int64][]byte, len(nutrition))
	for _, row := range nutrition {
		nutritionByID[row.ItemID] = row.Payload
	}
	ingredientsByID := make(map[int64][]byte, len(ingredients))
	for _, row := range ingredients {
		ingredientsByID[row.ItemID] = row.Payload
	}

	for i := range candidates {
		if payload, ok := nutritionByID[candidates[i].ID]; ok {
			candidates[i].Nutrition = catalog.CompactNutrition(catalog.DecodeEnrichment(payload))
		}
		if payload, ok := ingredientsByID[candidates[i].ID]; ok {
			candidates[i].Ingredients = catalog.CompactIngredients(catalog.DecodeEnrichment(payload), s.maxIngredientNames)
		}
	}

	s.logger.Debug("retrieval complete",
		"store", store, "k", k, "candidates", len(candidates),
		"with_nutrition", len(nutritionByID), "with_ingredients", len(ingredientsByID))

	return candidates, nil
}
