package retrieval

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealgen/rag-service/internal/core/catalog"
)

// stubRepository はRepositoryのテスト用実装
type stubRepository struct {
	candidates  []catalog.Candidate
	nutrition   []catalog.EnrichmentRow
	ingredients []catalog.EnrichmentRow

	gotStore string
	gotK     int
}

func (r *stubRepository) SearchCandidates(_ context.Context, store string, _ []float32, k int) ([]catalog.Candidate, error) {
	r.gotStore = store
	r.gotK = k
	if len(r.candidates) > k {
		return r.candidates[:k], nil
	}
	return r.candidates, nil
}

func (r *stubRepository) GetNutritionRows(_ context.Context, _ []int64) ([]catalog.EnrichmentRow, error) {
	return r.nutrition, nil
}

func (r *stubRepository) GetIngredientsRows(_ context.Context, _ []int64) ([]catalog.EnrichmentRow, error) {
	return r.ingredients, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrieve_MergesEnrichment(t *testing.T) {
	repo := &stubRepository{
		candidates: []catalog.Candidate{
			{ID: 1, Name: "Milk"},
			{ID: 2, Name: "Bread"},
		},
		nutrition: []catalog.EnrichmentRow{
			{ItemID: 1, Payload: []byte(`{"parsed":{"calories":64},"raw":"64 kcal"}`)},
		},
		ingredients: []catalog.EnrichmentRow{
			{ItemID: 1, Payload: []byte(`{"parsed":{"ingredients_list":["milk"]},"raw":"MILK."}`)},
		},
	}

	svc := NewService(repo, WithLogger(discardLogger()))
	candidates, err := svc.Retrieve(context.Background(), "maxima", []float32{0.1, 0.2}, 10)

	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// ID=1 はエンリッチメントがマージされる
	require.NotNil(t, candidates[0].Nutrition)
	require.NotNil(t, candidates[0].Nutrition.Calories)
	assert.Equal(t, 64, *candidates[0].Nutrition.Calories)
	require.NotNil(t, candidates[0].Ingredients)
	assert.Equal(t, []string{"milk"}, candidates[0].Ingredients.Names)

	// ID=2 はエンリッチメント行が無いのでnilのまま
	assert.Nil(t, candidates[1].Nutrition)
	assert.Nil(t, candidates[1].Ingredients)
}

func TestRetrieve_EmptyResult(t *testing.T) {
	svc := NewService(&stubRepository{}, WithLogger(discardLogger()))

	candidates, err := svc.Retrieve(context.Background(), "maxima", []float32{0.1}, 10)

	// 候補ゼロはエラーではなくnilを返す
	require.NoError(t, err)
	assert.Nil(t, candidates)
}

func TestRetrieve_DefaultK(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "maxima", []float32{0.1}, 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultK, repo.gotK)
}

func TestRetrieve_RequiresStore(t *testing.T) {
	svc := NewService(&stubRepository{}, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "", []float32{0.1}, 10)

	assert.Error(t, err)
}

func TestRetrieve_RequiresQueryVector(t *testing.T) {
	svc := NewService(&stubRepository{}, WithLogger(discardLogger()))

	_, err := svc.Retrieve(context.Background(), "maxima", nil, 10)

	assert.Error(t, err)
}

func TestRetrieve_CapsIngredientNames(t *testing.T) {
	list := `"x"`
	for i := 1; i < 40; i++ {
		list += `,"x"`
	}

	repo := &stubRepository{
		candidates: []catalog.Candidate{{ID: 1, Name: "Soup"}},
		ingredients: []catalog.EnrichmentRow{
			{ItemID: 1, Payload: []byte(`{"parsed":{"ingredients_list":[` + list + `]},"raw":""}`)},
		},
	}

	svc := NewService(repo, WithLogger(discardLogger()), WithMaxIngredientNames(5))
	candidates, err := svc.Retrieve(context.Background(), "maxima", []float32{0.1}, 10)

	require.NoError(t, err)
	require.NotNil(t, candidates[0].Ingredients)
	assert.Len(t, candidates[0].Ingredients.Names, 5)
}
