package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifierRepo はRepositoryのテスト用実装
type stubVerifierRepo struct {
	existing map[int64]struct{}
	gotIDs   []int64
	err      error
}

func (r *stubVerifierRepo) FilterExistingItemIDs(_ context.Context, _ string, ids []int64) (map[int64]struct{}, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.gotIDs = ids
	found := make(map[int64]struct{})
	for _, id := range ids {
		if _, ok := r.existing[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func existingIDs(ids ...int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestVerifyItemIDs_AllExist(t *testing.T) {
	repo := &stubVerifierRepo{existing: existingIDs(1, 2, 3)}
	v := NewVerifier(repo)

	err := v.VerifyItemIDs(context.Background(), "maxima", []int64{3, 1, 2})

	assert.NoError(t, err)
}

func TestVerifyItemIDs_DeduplicatesAndSorts(t *testing.T) {
	repo := &stubVerifierRepo{existing: existingIDs(1, 2)}
	v := NewVerifier(repo)

	err := v.VerifyItemIDs(context.Background(), "maxima", []int64{2, 1, 2, 1, 1})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, repo.gotIDs)
}

func TestVerifyItemIDs_Missing(t *testing.T) {
	repo := &stubVerifierRepo{existing: existingIDs(1)}
	v := NewVerifier(repo)

	err := v.VerifyItemIDs(context.Background(), "maxima", []int64{1, 99, 100})

	var groundingErr *GroundingError
	require.ErrorAs(t, err, &groundingErr)
	assert.Equal(t, "maxima", groundingErr.Store)
	assert.Equal(t, []int64{99, 100}, groundingErr.Missing)
}

func TestVerifyItemIDs_MissingCapped(t *testing.T) {
	repo := &stubVerifierRepo{existing: existingIDs()}
	v := NewVerifier(repo)

	ids := make([]int64, 50)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	err := v.VerifyItemIDs(context.Background(), "maxima", ids)

	var groundingErr *GroundingError
	require.ErrorAs(t, err, &groundingErr)
	assert.Len(t, groundingErr.Missing, 25)
}

func TestVerifyItemIDs_Empty(t *testing.T) {
	v := NewVerifier(&stubVerifierRepo{})

	err := v.VerifyItemIDs(context.Background(), "maxima", nil)

	assert.ErrorIs(t, err, ErrNoItemIDs)
}

func TestVerifyItemIDs_RepoError(t *testing.T) {
	repo := &stubVerifierRepo{err: errors.New("connection refused")}
	v := NewVerifier(repo)

	err := v.VerifyItemIDs(context.Background(), "maxima", []int64{1})

	require.Error(t, err)
	var groundingErr *GroundingError
	assert.False(t, errors.As(err, &groundingErr))
}
