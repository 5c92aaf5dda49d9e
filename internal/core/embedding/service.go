package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mealgen/rag-service/internal/core/catalog"
)

// ErrBackfillInProgress は同じ空間のバックフィルが別プロセスで実行中の場合のエラー
var ErrBackfillInProgress = errors.New("backfill already in progress for this space")

// Space はEmbeddingのベクトル空間を表す
// 空間ごとに独立したテーブルを持ち、アイテムIDで1:1に対応する
type Space string

const (
	// SpaceItem はカタログ行そのものの空間
	SpaceItem Space = "item"
	// SpaceNutrition は栄養レコードの空間
	SpaceNutrition Space = "nutrition"
	// SpaceIngredients は原材料レコードの空間
	SpaceIngredients Space = "ingredients"
)

// DefaultBackfillLimit はlimit未指定時に処理する行数
const DefaultBackfillLimit = 200

// Valid は既知の空間かどうかを返す
func (s Space) Valid() bool {
	switch s {
	case SpaceItem, SpaceNutrition, SpaceIngredients:
		return true
	}
	return false
}

// Repository はバックフィル対象の選択とEmbeddingのupsertを提供する
type Repository interface {
	// ListItemsMissingEmbeddings はEmbedding行を持たないカタログ行をID昇順で返す
	ListItemsMissingEmbeddings(ctx context.Context, store *string, limit int) ([]catalog.Item, error)
	// ListEnrichmentMissingEmbeddings はEmbedding行を持たない栄養・原材料行をID昇順で返す
	ListEnrichmentMissingEmbeddings(ctx context.Context, space Space, store *string, limit int) ([]catalog.EnrichmentRow, error)
	// UpsertEmbedding は (item_id, vector, now) をinsert-or-updateする
	UpsertEmbedding(ctx context.Context, space Space, itemID int64, vector []float32) error
}

// Embedder はテキスト群をベクトルに変換する
type Embedder interface {
	// BatchEmbed はバッチでEmbeddingを生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	// MaxBatchSize は1回の呼び出しで送れるテキスト数の上限を返す
	MaxBatchSize() int
}

// Locker は空間単位でバックフィルの同時実行を排他する
// upsertは冪等なので排他は正しさではなくEmbedding APIコストの問題
type Locker interface {
	// TryLock はキーのロック取得を試みる（ブロックしない）
	TryLock(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// BackfillService はEmbeddingバックフィルのビジネスロジックを提供する
// 1回の呼び出しはlimitに収まる1バッチのみを処理する。大きなカタログは
// 同じ呼び出しを繰り返すことで処理する（選択クエリが処理済み行を除外する
// ため冪等）。
type BackfillService struct {
	repo      Repository
	embedder  Embedder
	locker    Locker
	batchSize int
	logger    *slog.Logger
}

// BackfillOption はBackfillServiceのオプション設定
type BackfillOption func(*BackfillService)

// WithBackfillBatchSize はEmbedding API1回あたりのテキスト数上限を設定する
func WithBackfillBatchSize(size int) BackfillOption {
	return func(s *BackfillService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithBackfillLogger はロガーを設定する
func WithBackfillLogger(logger *slog.Logger) BackfillOption {
	return func(s *BackfillService) {
		s.logger = logger
	}
}

// WithBackfillLocker は同時実行排他用のロッカーを設定する（省略時は排他なし）
func WithBackfillLocker(locker Locker) BackfillOption {
	return func(s *BackfillService) {
		s.locker = locker
	}
}

// NewBackfillService は新しいBackfillServiceを作成する
func NewBackfillService(repo Repository, embedder Embedder, opts ...BackfillOption) *BackfillService {
	svc := &BackfillService{
		repo:      repo,
		embedder:  embedder,
		batchSize: 128,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// BackfillParams はバックフィルのパラメータ
type BackfillParams struct {
	Space Space
	// Store を指定するとストア名で絞り込む（大文字小文字は区別しない）
	Store *string
	Limit int
}

// BackfillResult はバックフィルの結果件数
type BackfillResult struct {
	// Updated はupsertしたEmbedding行数
	Updated int `json:"updated"`
	// Skipped はソースレコードが空・利用不能で除外した行数
	Skipped int `json:"skipped"`
}

// Backfill は指定空間でEmbeddingを持たない行を選択し、ドキュメントを構築して
// Embeddingを生成・upsertする。Embedding APIの呼び出しはトランザクションの
// 外で行う。
func (s *BackfillService) Backfill(ctx context.Context, params BackfillParams) (*BackfillResult, error) {
	if !params.Space.Valid() {
		return nil, fmt.Errorf("unknown embedding space: %q", params.Space)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, "embed_backfill:"+string(params.Space))
		if err != nil {
			return nil, fmt.Errorf("failed to acquire backfill lock: %w", err)
		}
		if !acquired {
			return nil, ErrBackfillInProgress
		}
		defer release()
	}

	ids, docs, skipped, err := s.collectDocuments(ctx, params.Space, params.Store, limit)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backfill selection complete",
		"space", params.Space, "candidates", len(ids), "skipped", skipped)

	if len(ids) == 0 {
		return &BackfillResult{Updated: 0, Skipped: skipped}, nil
	}

	updated := 0
	for start := 0; start < len(ids); start += s.embedBatchSize() {
		end := min(start+s.embedBatchSize(), len(ids))

		vectors, err := s.embedder.BatchEmbed(ctx, docs[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), end-start)
		}

		for i, vec := range vectors {
			if err := s.repo.UpsertEmbedding(ctx, params.Space, ids[start+i], vec); err != nil {
				return nil, fmt.Errorf("failed to upsert embedding for item %d: %w", ids[start+i], err)
			}
			updated++
		}
	}

	s.logger.Info("backfill complete", "space", params.Space, "updated", updated, "skipped", skipped)

	return &BackfillResult{Updated: updated, Skipped: skipped}, nil
}

// collectDocuments は対象行を選択し、Embedding用ドキュメントを構築する
// 空ドキュメントになった行はスキップとして数える
func (s *BackfillService) collectDocuments(ctx context.Context, space Space, store *string, limit int) (ids []int64, docs []string, skipped int, err error) {
	if space == SpaceItem {
		items, err := s.repo.ListItemsMissingEmbeddings(ctx, store, limit)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to list items missing embeddings: %w", err)
		}
		for _, item := range items {
			doc := catalog.ItemDocument(item)
			if strings.TrimSpace(doc) == "" {
				skipped++
				continue
			}
			ids = append(ids, item.ID)
			docs = append(docs, doc)
		}
		return ids, docs, skipped, nil
	}

	rows, err := s.repo.ListEnrichmentMissingEmbeddings(ctx, space, store, limit)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to list %s rows missing embeddings: %w", space, err)
	}
	for _, row := range rows {
		rec := catalog.DecodeEnrichment(row.Payload)
		var doc string
		if space == SpaceNutrition {
			doc = catalog.NutritionDocument(rec)
		} else {
			doc = catalog.IngredientsDocument(rec)
		}
		if strings.TrimSpace(doc) == "" {
			skipped++
			continue
		}
		ids = append(ids, row.ItemID)
		docs = append(docs, doc)
	}
	return ids, docs, skipped, nil
}

func (s *BackfillService) embedBatchSize() int {
	size := s.batchSize
	if max := s.embedder.MaxBatchSize(); max > 0 && size > max {
		size = max
	}
	if size <= 0 {
		size = 1
	}
	return size
}
