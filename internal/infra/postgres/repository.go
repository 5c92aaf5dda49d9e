package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mealgen/rag-service/internal/core/catalog"
	"github.com/mealgen/rag-service/internal/core/embedding"
	"github.com/mealgen/rag-service/internal/core/planner"
	"github.com/mealgen/rag-service/internal/core/retrieval"
)

// CatalogRepository はカタログ・Embedding・エンリッチメント集約への
// PostgreSQLアクセスを提供する。各メソッドはプールから短期の接続を取得し、
// トランザクションを外部プロバイダ呼び出しをまたいで保持しない。
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository は新しいCatalogRepositoryを作成する
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// 空間ごとのEmbeddingテーブルとソーステーブルの対応
// ベクトル次元はデプロイのライフタイムを通じて空間ごとに固定される
var spaceTables = map[embedding.Space]struct {
	embeddingTable string
	sourceTable    string
	payloadColumn  string
}{
	embedding.SpaceItem:        {embeddingTable: "item_embeddings"},
	embedding.SpaceNutrition:   {embeddingTable: "item_nutrition_embeddings", sourceTable: "item_nutrition", payloadColumn: "nutrition"},
	embedding.SpaceIngredients: {embeddingTable: "item_ingredients_embeddings", sourceTable: "item_ingredients", payloadColumn: "ingredients"},
}

// ListItemsMissingEmbeddings はEmbedding行を持たないカタログ行をID昇順で返す
func (r *CatalogRepository) ListItemsMissingEmbeddings(ctx context.Context, store *string, limit int) ([]catalog.Item, error) {
	query := `
		SELECT i.id, i.store, i.name, COALESCE(i.external_id, ''),
		       COALESCE(i.category_path, ''), COALESCE(i.unit_size, ''),
		       COALESCE(i.price, 0)::float8, i.image_url, i.tags_json
		FROM items i
		LEFT JOIN item_embeddings ie ON i.id = ie.item_id
		WHERE ie.item_id IS NULL`
	args := []any{limit}
	if store != nil {
		query += ` AND i.store ILIKE $2`
		args = append(args, *store)
	}
	query += `
		ORDER BY i.id
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items missing embeddings: %w", err)
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		var item catalog.Item
		var imageURL pgtype.Text
		if err := rows.Scan(&item.ID, &item.Store, &item.Name, &item.ExternalID,
			&item.CategoryPath, &item.UnitSize, &item.Price, &imageURL, &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		item.ImageURL = PgtextToStringPtr(imageURL)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read item rows: %w", err)
	}
	return items, nil
}

// ListEnrichmentMissingEmbeddings はEmbedding行を持たない栄養・原材料行をID昇順で返す
func (r *CatalogRepository) ListEnrichmentMissingEmbeddings(ctx context.Context, space embedding.Space, store *string, limit int) ([]catalog.EnrichmentRow, error) {
	tables, ok := spaceTables[space]
	if !ok || tables.sourceTable == "" {
		return nil, fmt.Errorf("unknown enrichment space: %q", space)
	}

	query := fmt.Sprintf(`
		SELECT s.item_id, s.%s
		FROM %s s
		JOIN items i ON i.id = s.item_id
		LEFT JOIN %s se ON s.item_id = se.item_id
		WHERE se.item_id IS NULL`, tables.payloadColumn, tables.sourceTable, tables.embeddingTable)
	args := []any{limit}
	if store != nil {
		query += ` AND i.store ILIKE $2`
		args = append(args, *store)
	}
	query += `
		ORDER BY s.item_id
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rows missing embeddings: %w", space, err)
	}
	defer rows.Close()

	var result []catalog.EnrichmentRow
	for rows.Next() {
		var row catalog.EnrichmentRow
		if err := rows.Scan(&row.ItemID, &row.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", space, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", space, err)
	}
	return result, nil
}

// UpsertEmbedding は (item_id, vector, now) をinsert-or-updateする
// 後勝ちの冪等なupsertなので、同じ集合を再処理しても行は増えない
func (r *CatalogRepository) UpsertEmbedding(ctx context.Context, space embedding.Space, itemID int64, vector []float32) error {
	tables, ok := spaceTables[space]
	if !ok {
		return fmt.Errorf("unknown embedding space: %q", space)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (item_id, embedding, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (item_id) DO UPDATE
		SET embedding = EXCLUDED.embedding, updated_at = CURRENT_TIMESTAMP`, tables.embeddingTable)

	if _, err := r.pool.Exec(ctx, query, itemID, pgvector.NewVector(vector)); err != nil {
		return fmt.Errorf("failed to upsert %s embedding: %w", space, err)
	}
	return nil
}

// SearchCandidates はstoreのアイテムをコサイン距離の昇順でk件まで返す
// 同距離の順序は基盤インデックスの自然順に委ねる（安定性は保証しない）
func (r *CatalogRepository) SearchCandidates(ctx context.Context, store string, queryVector []float32, k int) ([]catalog.Candidate, error) {
	query := `
		SELECT i.id, i.name, COALESCE(i.price, 0)::float8,
		       COALESCE(i.unit_size, ''), COALESCE(i.category_path, ''), i.image_url,
		       ie.embedding <=> $2 AS distance
		FROM items i
		INNER JOIN item_embeddings ie ON i.id = ie.item_id
		WHERE i.store ILIKE $1
		ORDER BY ie.embedding <=> $2
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, store, pgvector.NewVector(queryVector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}
	defer rows.Close()

	var candidates []catalog.Candidate
	for rows.Next() {
		var c catalog.Candidate
		var imageURL pgtype.Text
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.UnitSize, &c.CategoryPath, &imageURL, &c.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		c.ImageURL = PgtextToStringPtr(imageURL)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate rows: %w", err)
	}
	return candidates, nil
}

// GetNutritionRows は指定IDの栄養行を返す
func (r *CatalogRepository) GetNutritionRows(ctx context.Context, itemIDs []int64) ([]catalog.EnrichmentRow, error) {
	return r.enrichmentRows(ctx, "item_nutrition", "nutrition", itemIDs)
}

// GetIngredientsRows は指定IDの原材料行を返す
func (r *CatalogRepository) GetIngredientsRows(ctx context.Context, itemIDs []int64) ([]catalog.EnrichmentRow, error) {
	return r.enrichmentRows(ctx, "item_ingredients", "ingredients", itemIDs)
}

func (r *CatalogRepository) enrichmentRows(ctx context.Context, table, column string, itemIDs []int64) ([]catalog.EnrichmentRow, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT item_id, %s FROM %s WHERE item_id = ANY($1)`, column, table)
	rows, err := r.pool.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s rows: %w", table, err)
	}
	defer rows.Close()

	var result []catalog.EnrichmentRow
	for rows.Next() {
		var row catalog.EnrichmentRow
		if err := rows.Scan(&row.ItemID, &row.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table, err)
	}
	return result, nil
}

// FilterExistingItemIDs はstore配下に実在するIDの集合を1クエリで返す
func (r *CatalogRepository) FilterExistingItemIDs(ctx context.Context, store string, ids []int64) (map[int64]struct{}, error) {
	if len(ids) == 0 {
		return map[int64]struct{}{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id FROM items WHERE store ILIKE $1 AND id = ANY($2)`, store, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check item ids: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read item ids: %w", err)
	}
	return found, nil
}

// インターフェース実装の確認
var (
	_ embedding.Repository = (*CatalogRepository)(nil)
	_ retrieval.Repository = (*CatalogRepository)(nil)
	_ planner.Repository   = (*CatalogRepository)(nil)
)
