package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnrichment_PlainString(t *testing.T) {
	rec := DecodeEnrichment([]byte(`"WATER, SUGAR, SALT."`))

	assert.False(t, rec.HasParsed())
	assert.Equal(t, "WATER, SUGAR, SALT.", rec.Raw)
}

func TestDecodeEnrichment_ParsedObject(t *testing.T) {
	payload := []byte(`{"parsed":{"calories":120},"raw":"120 kcal per serving"}`)

	rec := DecodeEnrichment(payload)

	require.True(t, rec.HasParsed())
	assert.JSONEq(t, `{"calories":120}`, string(rec.Parsed))
	assert.Equal(t, "120 kcal per serving", rec.Raw)
}

func TestDecodeEnrichment_NullParsed(t *testing.T) {
	payload := []byte(`{"parsed":null,"raw":"free text"}`)

	rec := DecodeEnrichment(payload)

	assert.False(t, rec.HasParsed())
	assert.Equal(t, "free text", rec.Raw)
}

func TestDecodeEnrichment_InvalidJSON(t *testing.T) {
	rec := DecodeEnrichment([]byte("not json at all"))

	assert.False(t, rec.HasParsed())
	assert.Equal(t, "not json at all", rec.Raw)
}

func TestDecodeEnrichment_Empty(t *testing.T) {
	rec := DecodeEnrichment(nil)

	assert.False(t, rec.HasParsed())
	assert.Empty(t, rec.Raw)
}

func TestCompactNutrition(t *testing.T) {
	calories := 250
	sodium := 430.0
	rec := EnrichmentRecord{
		Parsed: mustMarshal(t, NutritionFacts{
			Calories: &calories,
			SodiumMg: &sodium,
		}),
	}

	compact := CompactNutrition(rec)

	require.NotNil(t, compact)
	require.NotNil(t, compact.Calories)
	assert.Equal(t, 250, *compact.Calories)
	require.NotNil(t, compact.SodiumMg)
	assert.Equal(t, 430.0, *compact.SodiumMg)
	assert.Empty(t, compact.Raw)
}

func TestCompactNutrition_RawFallback(t *testing.T) {
	rec := EnrichmentRecord{Raw: "Energy 250kcal"}

	compact := CompactNutrition(rec)

	require.NotNil(t, compact)
	assert.Nil(t, compact.Calories)
	assert.Equal(t, "Energy 250kcal", compact.Raw)
}

func TestCompactIngredients_CapsNames(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = "ingredient"
	}
	rec := EnrichmentRecord{
		Parsed: mustMarshal(t, IngredientsFacts{IngredientsList: names}),
	}

	compact := CompactIngredients(rec, 10)

	require.NotNil(t, compact)
	assert.Len(t, compact.Names, 10)
}

func TestCompactIngredients_DefaultCap(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = "ingredient"
	}
	rec := EnrichmentRecord{
		Parsed: mustMarshal(t, IngredientsFacts{IngredientsList: names}),
	}

	// 0以下は既定の30にフォールバック
	compact := CompactIngredients(rec, 0)

	require.NotNil(t, compact)
	assert.Len(t, compact.Names, DefaultMaxIngredientNames)
}

func TestCompactIngredients_RawFallback(t *testing.T) {
	rec := EnrichmentRecord{
		Parsed: json.RawMessage(`{"ingredients_list":[]}`),
		Raw:    "WATER, FLOUR",
	}

	compact := CompactIngredients(rec, 30)

	require.NotNil(t, compact)
	assert.Empty(t, compact.Names)
	assert.Equal(t, "WATER, FLOUR", compact.Raw)
}
