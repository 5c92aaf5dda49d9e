package planner

import (
	"context"
	"fmt"
	"slices"
)

// Repository はグラウンディング検証用のカタログ照合を提供する
type Repository interface {
	// FilterExistingItemIDs はstore配下に実在するIDの集合を返す
	// ストア名の照合は大文字小文字を区別しない
	FilterExistingItemIDs(ctx context.Context, store string, ids []int64) (map[int64]struct{}, error)
}

// Verifier は生成されたプランのアイテムIDがカタログに実在することを保証する
type Verifier struct {
	repo Repository
}

// NewVerifier は新しいVerifierを作成する
func NewVerifier(repo Repository) *Verifier {
	return &Verifier{repo: repo}
}

// VerifyItemIDs は全IDがstore配下のカタログに存在することを1回の
// 集合照合クエリで確認する。欠落が1つでもあれば致命的エラーとして
// GroundingErrorを返す（ベストエフォートの間引きはしない）。
func (v *Verifier) VerifyItemIDs(ctx context.Context, store string, ids []int64) error {
	if len(ids) == 0 {
		return ErrNoItemIDs
	}

	// クエリコスト削減のため重複を除いて昇順に整列する
	unique := dedupeSorted(ids)

	found, err := v.repo.FilterExistingItemIDs(ctx, store, unique)
	if err != nil {
		return fmt.Errorf("failed to verify item ids: %w", err)
	}

	var missing []int64
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		if len(missing) > maxReportedMissingIDs {
			missing = missing[:maxReportedMissingIDs]
		}
		return &GroundingError{Store: store, Missing: missing}
	}
	return nil
}

// dedupeSorted は重複を除去した昇順のコピーを返す
func dedupeSorted(ids []int64) []int64 {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	return slices.Compact(unique)
}
