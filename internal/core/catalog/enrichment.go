package catalog

import (
	"encoding/json"
)

// EnrichmentRecord は栄養・原材料の格納形式を表す2バリアント型
// DB上は素の文字列、または {parsed, raw} 形式のJSONオブジェクトのどちらかで
// 格納されており、読み取り時に一度だけ分類する。Rawは常に利用可能なバリアント。
type EnrichmentRecord struct {
	// Parsed は外部パーサが生成した構造化サブツリー（無ければnil）
	Parsed json.RawMessage
	// Raw は元のテキスト表現（フォールバック用、空の場合あり）
	Raw string
}

// HasParsed は構造化データを持つかどうかを返す
func (r EnrichmentRecord) HasParsed() bool {
	return len(r.Parsed) > 0 && string(r.Parsed) != "null"
}

// DecodeEnrichment は格納ペイロードを分類してEnrichmentRecordに解決する
// 不正な入力でも失敗せず、常に利用可能なレコードを返す
func DecodeEnrichment(payload []byte) EnrichmentRecord {
	if len(payload) == 0 {
		return EnrichmentRecord{}
	}

	// JSON文字列として格納されているケース
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return EnrichmentRecord{Raw: s}
	}

	// {parsed, raw} オブジェクトとして格納されているケース
	var obj struct {
		Parsed json.RawMessage `json:"parsed"`
		Raw    string          `json:"raw"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		return EnrichmentRecord{Parsed: obj.Parsed, Raw: obj.Raw}
	}

	// JSONとして解釈できない場合はペイロード全体を生テキスト扱いにする
	return EnrichmentRecord{Raw: string(payload)}
}

// NutritionFacts は外部パーサが抽出した栄養データ
type NutritionFacts struct {
	ServingCount       *int     `json:"serving_count"`
	ServingSizeText    *string  `json:"serving_size_text"`
	ServingSizeGrams   *float64 `json:"serving_size_grams"`
	Calories           *int     `json:"calories"`
	TotalFatG          *float64 `json:"total_fat_g"`
	SaturatedFatG      *float64 `json:"saturated_fat_g"`
	TransFatG          *float64 `json:"trans_fat_g"`
	CholesterolMg      *float64 `json:"cholesterol_mg"`
	SodiumMg           *float64 `json:"sodium_mg"`
	TotalCarbohydrateG *float64 `json:"total_carbohydrate_g"`
	DietaryFiberG      *float64 `json:"dietary_fiber_g"`
	TotalSugarsG       *float64 `json:"total_sugars_g"`
	AddedSugarsG       *float64 `json:"added_sugars_g"`
	ProteinG           *float64 `json:"protein_g"`
	VitaminDMcg        *float64 `json:"vitamin_d_mcg"`
	CalciumMg          *float64 `json:"calcium_mg"`
	IronMg             *float64 `json:"iron_mg"`
	PotassiumMg        *float64 `json:"potassium_mg"`
}

// IngredientsFacts は外部パーサが抽出した原材料データ
type IngredientsFacts struct {
	IngredientsList  []string         `json:"ingredients_list"`
	ContainsLessThan []ContainsClause `json:"contains_less_than"`
	IngredientsRaw   string           `json:"ingredients_raw"`
	IngredientsCount *int             `json:"ingredients_count"`
}

// ContainsClause は「CONTAINS X% OR LESS OF ...」句の抽出結果
type ContainsClause struct {
	Percentage  float64  `json:"percentage"`
	Ingredients []string `json:"ingredients"`
}

// nutritionFacts はparsedサブツリーをNutritionFactsに解決する（失敗時はnil）
func (r EnrichmentRecord) nutritionFacts() *NutritionFacts {
	if !r.HasParsed() {
		return nil
	}
	var facts NutritionFacts
	if err := json.Unmarshal(r.Parsed, &facts); err != nil {
		return nil
	}
	return &facts
}

// ingredientsFacts はparsedサブツリーをIngredientsFactsに解決する（失敗時はnil）
func (r EnrichmentRecord) ingredientsFacts() *IngredientsFacts {
	if !r.HasParsed() {
		return nil
	}
	var facts IngredientsFacts
	if err := json.Unmarshal(r.Parsed, &facts); err != nil {
		return nil
	}
	return &facts
}

// CompactNutrition はEnrichmentRecordから境界付きの栄養射影を作る
// レコードが存在する限りnilを返さない（構造化データが無ければRawフォールバック）
func CompactNutrition(rec EnrichmentRecord) *CompactedNutrition {
	facts := rec.nutritionFacts()
	if facts == nil {
		return &CompactedNutrition{Raw: truncate(rec.Raw, rawFallbackLimit)}
	}

	return &CompactedNutrition{
		Calories:           facts.Calories,
		ServingSizeText:    facts.ServingSizeText,
		ProteinG:           facts.ProteinG,
		TotalFatG:          facts.TotalFatG,
		TotalCarbohydrateG: facts.TotalCarbohydrateG,
		DietaryFiberG:      facts.DietaryFiberG,
		TotalSugarsG:       facts.TotalSugarsG,
		SodiumMg:           facts.SodiumMg,
	}
}

// CompactIngredients はEnrichmentRecordから境界付きの原材料射影を作る
// maxNamesで原材料名リストを切り詰める（0以下の場合は既定の30を使う）
func CompactIngredients(rec EnrichmentRecord, maxNames int) *CompactedIngredients {
	if maxNames <= 0 {
		maxNames = DefaultMaxIngredientNames
	}

	facts := rec.ingredientsFacts()
	if facts == nil || len(facts.IngredientsList) == 0 {
		return &CompactedIngredients{Raw: truncate(rec.Raw, rawFallbackLimit)}
	}

	names := facts.IngredientsList
	if len(names) > maxNames {
		names = names[:maxNames]
	}

	return &CompactedIngredients{
		Names: names,
		Count: facts.IngredientsCount,
	}
}

// DefaultMaxIngredientNames は原材料名リストの既定上限
const DefaultMaxIngredientNames = 30
