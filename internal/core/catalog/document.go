package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// rawFallbackLimit は構造化データが無い場合に埋め込む生テキストの上限文字数
const rawFallbackLimit = 1000

// ItemDocument はカタログ行からEmbedding用の正規化テキストを組み立てる
// 同じ入力は常に同じ文字列になる。行の順序を変えるとベクトル空間の意味が
// 崩れるため、既存Embeddingを全て再生成しない限り変更してはならない。
func ItemDocument(item Item) string {
	tags := ""
	if len(item.Tags) > 0 && string(item.Tags) != "null" {
		tags = string(item.Tags)
	}

	return strings.Join([]string{
		"name: " + item.Name,
		"store: " + item.Store,
		"category: " + item.CategoryPath,
		"unit: " + item.UnitSize,
		"price: " + strconv.FormatFloat(item.Price, 'f', -1, 64),
		"tags: " + tags,
	}, "\n")
}

// NutritionDocument は栄養レコードからEmbedding用テキストを組み立てる
// 構造化データがあればフィールド単位の可読サマリ（欠損フィールドは省略）、
// 無ければ生テキストの先頭1000文字にフォールバックする
func NutritionDocument(rec EnrichmentRecord) string {
	facts := rec.nutritionFacts()
	if facts == nil {
		return truncate(rec.Raw, rawFallbackLimit)
	}

	var lines []string
	appendInt := func(label string, v *int) {
		if v != nil {
			lines = append(lines, fmt.Sprintf("%s: %d", label, *v))
		}
	}
	appendFloat := func(label, unit string, v *float64) {
		if v != nil {
			lines = append(lines, fmt.Sprintf("%s: %s%s", label, strconv.FormatFloat(*v, 'f', -1, 64), unit))
		}
	}

	appendInt("serves", facts.ServingCount)
	if facts.ServingSizeText != nil {
		lines = append(lines, "serving size: "+*facts.ServingSizeText)
	}
	appendFloat("serving size grams", "g", facts.ServingSizeGrams)
	appendInt("calories per serving", facts.Calories)
	appendFloat("total fat", "g", facts.TotalFatG)
	appendFloat("saturated fat", "g", facts.SaturatedFatG)
	appendFloat("trans fat", "g", facts.TransFatG)
	appendFloat("cholesterol", "mg", facts.CholesterolMg)
	appendFloat("sodium", "mg", facts.SodiumMg)
	appendFloat("total carbohydrate", "g", facts.TotalCarbohydrateG)
	appendFloat("dietary fiber", "g", facts.DietaryFiberG)
	appendFloat("total sugars", "g", facts.TotalSugarsG)
	appendFloat("added sugars", "g", facts.AddedSugarsG)
	appendFloat("protein", "g", facts.ProteinG)
	appendFloat("vitamin d", "mcg", facts.VitaminDMcg)
	appendFloat("calcium", "mg", facts.CalciumMg)
	appendFloat("iron", "mg", facts.IronMg)
	appendFloat("potassium", "mg", facts.PotassiumMg)

	if len(lines) == 0 {
		return truncate(rec.Raw, rawFallbackLimit)
	}
	return strings.Join(lines, "\n")
}

// IngredientsDocument は原材料レコードからEmbedding用テキストを組み立てる
// 構造化データがあれば原材料リストの可読サマリ、無ければ生テキストの
// 先頭1000文字にフォールバックする
func IngredientsDocument(rec EnrichmentRecord) string {
	facts := rec.ingredientsFacts()
	if facts == nil || len(facts.IngredientsList) == 0 {
		return truncate(rec.Raw, rawFallbackLimit)
	}

	var lines []string
	lines = append(lines, "ingredients: "+strings.Join(facts.IngredientsList, ", "))
	for _, clause := range facts.ContainsLessThan {
		if len(clause.Ingredients) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("contains %s%% or less of: %s",
			strconv.FormatFloat(clause.Percentage, 'f', -1, 64),
			strings.Join(clause.Ingredients, ", ")))
	}
	if facts.IngredientsCount != nil {
		lines = append(lines, fmt.Sprintf("ingredient count: %d", *facts.IngredientsCount))
	}

	return strings.Join(lines, "\n")
}

// truncate は文字列を先頭limit文字（rune単位）に切り詰める
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
