package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemDocument(t *testing.T) {
	item := Item{
		ID:           42,
		Store:        "maxima",
		Name:         "Whole Milk 1L",
		CategoryPath: "Dairy > Milk",
		UnitSize:     "1 l",
		Price:        1.09,
		Tags:         json.RawMessage(`["organic","local"]`),
	}

	doc := ItemDocument(item)

	// フィールドの順序は固定（Embedding空間の互換性のため）
	expected := strings.Join([]string{
		"name: Whole Milk 1L",
		"store: maxima",
		"category: Dairy > Milk",
		"unit: 1 l",
		"price: 1.09",
		`tags: ["organic","local"]`,
	}, "\n")
	assert.Equal(t, expected, doc)
}

func TestItemDocument_EmptyTags(t *testing.T) {
	item := Item{Name: "Eggs", Store: "rimi", Price: 2.5}

	doc := ItemDocument(item)

	assert.True(t, strings.HasSuffix(doc, "tags: "))

	// NULLタグも空文字列扱い
	item.Tags = json.RawMessage("null")
	assert.Equal(t, doc, ItemDocument(item))
}

func TestItemDocument_Deterministic(t *testing.T) {
	item := Item{Name: "Butter", Store: "iki", Price: 3.99}
	assert.Equal(t, ItemDocument(item), ItemDocument(item))
}

func TestNutritionDocument(t *testing.T) {
	calories := 250
	protein := 12.5
	sizeText := "1 cup (240ml)"
	rec := EnrichmentRecord{
		Parsed: mustMarshal(t, NutritionFacts{
			Calories:        &calories,
			ProteinG:        &protein,
			ServingSizeText: &sizeText,
		}),
	}

	doc := NutritionDocument(rec)

	assert.Contains(t, doc, "calories per serving: 250")
	assert.Contains(t, doc, "protein: 12.5g")
	assert.Contains(t, doc, "serving size: 1 cup (240ml)")
	// 欠損フィールドは行ごと省略される
	assert.NotContains(t, doc, "sodium")
	assert.NotContains(t, doc, "total fat")
}

func TestNutritionDocument_RawFallback(t *testing.T) {
	rec := EnrichmentRecord{Raw: "Energy 1046kJ / 250kcal per 100g"}

	doc := NutritionDocument(rec)

	assert.Equal(t, "Energy 1046kJ / 250kcal per 100g", doc)
}

func TestNutritionDocument_RawFallbackTruncated(t *testing.T) {
	rec := EnrichmentRecord{Raw: strings.Repeat("x", 5000)}

	doc := NutritionDocument(rec)

	assert.Len(t, doc, 1000)
}

func TestNutritionDocument_EmptyFactsFallsBackToRaw(t *testing.T) {
	// parsedは存在するが全フィールドがnullの場合
	rec := EnrichmentRecord{
		Parsed: json.RawMessage(`{}`),
		Raw:    "per serving: some text",
	}

	doc := NutritionDocument(rec)

	assert.Equal(t, "per serving: some text", doc)
}

func TestIngredientsDocument(t *testing.T) {
	count := 5
	rec := EnrichmentRecord{
		Parsed: mustMarshal(t, IngredientsFacts{
			IngredientsList: []string{"water", "wheat flour", "salt"},
			ContainsLessThan: []ContainsClause{
				{Percentage: 2, Ingredients: []string{"yeast", "sugar"}},
			},
			IngredientsCount: &count,
		}),
	}

	doc := IngredientsDocument(rec)

	assert.Contains(t, doc, "ingredients: water, wheat flour, salt")
	assert.Contains(t, doc, "contains 2% or less of: yeast, sugar")
	assert.Contains(t, doc, "ingredient count: 5")
}

func TestIngredientsDocument_RawFallback(t *testing.T) {
	rec := EnrichmentRecord{Raw: "WATER, FLOUR, SALT."}

	assert.Equal(t, "WATER, FLOUR, SALT.", IngredientsDocument(rec))
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
