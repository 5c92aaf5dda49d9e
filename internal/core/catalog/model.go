package catalog

import "encoding/json"

// Item はストアのカタログ1行を表す
// 取り込みパイプラインが作成・更新するため、本サービスからは読み取り専用
type Item struct {
	ID           int64
	Store        string
	Name         string
	ExternalID   string
	CategoryPath string
	UnitSize     string
	Price        float64
	ImageURL     *string
	Tags         json.RawMessage // tags_json カラム（NULL可）
}

// EnrichmentRow は栄養・原材料テーブルの1行（item_idと生ペイロード）
type EnrichmentRow struct {
	ItemID  int64
	Payload []byte
}

// Candidate はベクトル検索で取得した候補アイテム
// JSONタグはLLMへ渡すペイロードのキー名を固定する
type Candidate struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Price        float64               `json:"price"`
	UnitSize     string                `json:"unit_size"`
	CategoryPath string                `json:"category_path"`
	ImageURL     *string               `json:"image_url"`
	Nutrition    *CompactedNutrition   `json:"nutrition"`
	Ingredients  *CompactedIngredients `json:"ingredients"`

	// Distance はクエリベクトルとのコサイン距離（昇順で返される）
	Distance float64 `json:"-"`
}

// CompactedNutrition は栄養情報の境界付き射影
// 候補ごとに検索時に組み立てられ、永続化されない
type CompactedNutrition struct {
	Calories           *int     `json:"calories,omitempty"`
	ServingSizeText    *string  `json:"servingSize,omitempty"`
	ProteinG           *float64 `json:"proteinG,omitempty"`
	TotalFatG          *float64 `json:"totalFatG,omitempty"`
	TotalCarbohydrateG *float64 `json:"totalCarbohydrateG,omitempty"`
	DietaryFiberG      *float64 `json:"dietaryFiberG,omitempty"`
	TotalSugarsG       *float64 `json:"totalSugarsG,omitempty"`
	SodiumMg           *float64 `json:"sodiumMg,omitempty"`
	// Raw は構造化データが無い場合のフォールバックテキスト
	Raw string `json:"raw,omitempty"`
}

// CompactedIngredients は原材料情報の境界付き射影
type CompactedIngredients struct {
	// Names は主要原材料名（設定された上限で切り詰め）
	Names []string `json:"names,omitempty"`
	Count *int     `json:"count,omitempty"`
	// Raw は構造化データが無い場合のフォールバックテキスト
	Raw string `json:"raw,omitempty"`
}
