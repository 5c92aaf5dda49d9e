package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mealgen/rag-service/internal/core/catalog"
)

// systemInstruction はモデルを供給アイテムのみに制限する基本指示
const systemInstruction = "You are a meal-planning assistant. Only use the provided items."

// outputShapeInstruction は出力JSONの形を固定するユーザー指示
const outputShapeInstruction = "Return ONLY valid JSON with this shape:\n" +
	"{title, startDate, endDate, plan:[{date, meals:[{name, items:[{id,name}]}]}]}\n" +
	"Each day must have exactly three meals named Breakfast, Lunch and Dinner, each with 1 to 8 items.\n" +
	"Use only items from the provided items list."

// NormalizeDietStyle は食事スタイル表記を正規化する
// ハイフンを空白に置き換え、各単語を大文字始まりにする（例: "gluten-free" → "Gluten Free"）
func NormalizeDietStyle(diet string) string {
	diet = strings.ReplaceAll(diet, "-", " ")
	words := strings.Fields(diet)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// BuildSystemInstruction は基本指示に食事スタイルごとのガイダンスを加える
// ベジタリアン系は候補の過剰な除外を避けるため卵・乳製品を明示的に許可し、
// それ以外のスタイルには準拠アイテムのみを選ぶ一般的な指示を与える
func BuildSystemInstruction(prefs Preferences) string {
	if prefs.DietaryRestrictions == nil || strings.TrimSpace(*prefs.DietaryRestrictions) == "" {
		return systemInstruction
	}

	diet := NormalizeDietStyle(*prefs.DietaryRestrictions)
	if strings.Contains(strings.ToLower(diet), "vegetarian") {
		return systemInstruction + " The plan must be " + diet +
			": do not include meat, poultry, fish, or seafood items. Eggs and dairy are permitted."
	}
	return systemInstruction + " Only select items compliant with the " + diet + " diet."
}

// BuildQueryText は好みの各フィールドを織り込んだ検索クエリ文を組み立てる
// このテキストを1ベクトルに変換して候補検索に使う
func BuildQueryText(store string, days int, prefs Preferences) string {
	diet := "none"
	if prefs.DietaryRestrictions != nil && *prefs.DietaryRestrictions != "" {
		diet = NormalizeDietStyle(*prefs.DietaryRestrictions)
	}
	allergies := "none"
	if prefs.Allergies != nil && *prefs.Allergies != "" {
		allergies = *prefs.Allergies
	}
	calories := "not specified"
	if prefs.TargetCaloriesPerDay != nil {
		calories = fmt.Sprintf("%d", *prefs.TargetCaloriesPerDay)
	}

	return strings.Join([]string{
		fmt.Sprintf("Create a %d-day meal plan using %s grocery items.", days, store),
		fmt.Sprintf("Dietary restrictions: %s.", diet),
		fmt.Sprintf("Disliked ingredients or allergies: %s.", allergies),
		fmt.Sprintf("Target calories per day: %s.", calories),
		"Prefer variety and practical meals.",
	}, "\n")
}

// groundingPayload はモデルへ渡すグラウンディングデータ
type groundingPayload struct {
	Store       string              `json:"store"`
	Days        int                 `json:"days"`
	StartDate   string              `json:"startDate"`
	Preferences Preferences         `json:"preferences"`
	Items       []catalog.Candidate `json:"items"`
}

// TokenCounter はプロンプトのトークン数を数える
type TokenCounter interface {
	CountTokens(text string) int
}

// marshalBoundedPayload はペイロードをシリアライズし、トークン上限を超える間は
// 末尾（距離が遠い側）の候補から削っていく。候補が1件になっても超える場合は
// そのまま返す（切り詰めはここまでで、失敗にはしない）。
func marshalBoundedPayload(payload groundingPayload, counter TokenCounter, budget int) (string, int, error) {
	for {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return "", 0, fmt.Errorf("failed to marshal grounding payload: %w", err)
		}
		if counter == nil || budget <= 0 || len(payload.Items) <= 1 {
			return string(encoded), len(payload.Items), nil
		}
		if counter.CountTokens(string(encoded)) <= budget {
			return string(encoded), len(payload.Items), nil
		}
		payload.Items = payload.Items[:len(payload.Items)-1]
	}
}
