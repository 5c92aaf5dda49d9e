package planner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDays は日数が範囲外の場合のエラー
	ErrInvalidDays = errors.New("days must be between 1 and 14")

	// ErrStoreRequired はストア未指定の場合のエラー
	ErrStoreRequired = errors.New("store is required")

	// ErrNotReady は対象ストアにEmbedding済みアイテムが無い場合のエラー
	// バックフィルを先に実行する必要がある
	ErrNotReady = errors.New("no embedded items found for store: run embed backfill first")

	// ErrUpstreamEmpty は生成モデルが空のレスポンスを返した場合のエラー
	ErrUpstreamEmpty = errors.New("model returned empty response")

	// ErrNoItemIDs は生成されたプランがアイテムを1つも参照しない場合のエラー
	ErrNoItemIDs = errors.New("generated plan contains no item ids")
)

// maxReportedViolations はSchemaErrorが保持する違反の上限
// 診断出力が際限なく膨らむのを防ぐ
const maxReportedViolations = 5

// maxReportedMissingIDs はGroundingErrorが保持する欠落IDの上限
const maxReportedMissingIDs = 25

// SchemaError は生成テキストがMealPlanDocスキーマに適合しない場合のエラー
// 部分的な受理はせず、リクエスト全体を失敗させる
type SchemaError struct {
	// NotJSON はそもそもJSONとして解析できなかった場合にtrue
	NotJSON bool
	// Violations は構造上の違反（最大maxReportedViolations件）
	Violations []string
}

func (e *SchemaError) Error() string {
	if e.NotJSON {
		return "model did not return valid JSON"
	}
	return fmt.Sprintf("plan schema validation failed: %s", strings.Join(e.Violations, "; "))
}

// newSchemaError は違反リストを上限まで切り詰めてSchemaErrorを作る
func newSchemaError(violations []string) *SchemaError {
	if len(violations) > maxReportedViolations {
		violations = violations[:maxReportedViolations]
	}
	return &SchemaError{Violations: violations}
}

// GroundingError は生成されたプランがカタログに存在しないアイテムIDを
// 参照した場合のエラー。モデルがIDを捏造したか、別ストアのIDを混入させた
// ことを意味する。黙って除外したプランは価格・構成が揃って見えるだけに
// かえって有害なため、プラン全体を拒否する。
type GroundingError struct {
	Store string
	// Missing は見つからなかったID（最大maxReportedMissingIDs件、昇順）
	Missing []int64
}

func (e *GroundingError) Error() string {
	return fmt.Sprintf("generated plan references unknown item ids for store=%s: %v", e.Store, e.Missing)
}
