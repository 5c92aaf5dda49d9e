package planner

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidatePlan は生成テキストをJSONとして解析し、MealPlanDocスキーマに対して
// 構造検証する。違反が1つでもあればリクエスト全体を失敗させ、先頭5件までの
// 違反を添えたSchemaErrorを返す。
func ValidatePlan(raw string) (*MealPlanDoc, error) {
	var root any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, &SchemaError{NotJSON: true}
	}

	v := &validator{}
	doc := v.document(root)
	if len(v.violations) > 0 {
		return nil, newSchemaError(v.violations)
	}
	return doc, nil
}

// validator は構造違反を収集しながらany木を型付きドキュメントへ変換する
type validator struct {
	violations []string
}

func (v *validator) addf(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *validator) document(root any) *MealPlanDoc {
	obj, ok := root.(map[string]any)
	if !ok {
		v.addf("root: expected JSON object")
		return nil
	}

	doc := &MealPlanDoc{
		Title:     v.stringField(obj, "title"),
		StartDate: v.stringField(obj, "startDate"),
		EndDate:   v.stringField(obj, "endDate"),
	}

	planRaw, ok := obj["plan"]
	if !ok {
		v.addf("plan: required field is missing")
		return doc
	}
	planList, ok := planRaw.([]any)
	if !ok {
		v.addf("plan: expected array")
		return doc
	}

	for i, dayRaw := range planList {
		doc.Plan = append(doc.Plan, v.dayPlan(fmt.Sprintf("plan[%d]", i), dayRaw))
	}
	return doc
}

func (v *validator) stringField(obj map[string]any, key string) string {
	raw, ok := obj[key]
	if !ok {
		v.addf("%s: required field is missing", key)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.addf("%s: expected string", key)
		return ""
	}
	return s
}

func (v *validator) dayPlan(path string, raw any) DayPlan {
	obj, ok := raw.(map[string]any)
	if !ok {
		v.addf("%s: expected object", path)
		return DayPlan{}
	}

	day := DayPlan{Date: v.stringField2(path, obj, "date")}

	mealsRaw, ok := obj["meals"]
	if !ok {
		v.addf("%s.meals: required field is missing", path)
		return day
	}
	mealsList, ok := mealsRaw.([]any)
	if !ok {
		v.addf("%s.meals: expected array", path)
		return day
	}
	if len(mealsList) != len(MealNames) {
		v.addf("%s.meals: expected exactly %d meals, got %d", path, len(MealNames), len(mealsList))
	}

	seen := make(map[string]bool, len(MealNames))
	for i, mealRaw := range mealsList {
		meal := v.meal(fmt.Sprintf("%s.meals[%d]", path, i), mealRaw)
		if meal.Name != "" {
			if seen[meal.Name] {
				v.addf("%s.meals: meal %q appears more than once", path, meal.Name)
			}
			seen[meal.Name] = true
		}
		day.Meals = append(day.Meals, meal)
	}
	return day
}

func (v *validator) meal(path string, raw any) Meal {
	obj, ok := raw.(map[string]any)
	if !ok {
		v.addf("%s: expected object", path)
		return Meal{}
	}

	meal := Meal{}
	name := v.stringField2(path, obj, "name")
	if name != "" && !validMealName(name) {
		v.addf("%s.name: %q is not one of Breakfast, Lunch, Dinner", path, name)
	} else {
		meal.Name = name
	}

	itemsRaw, ok := obj["items"]
	if !ok {
		v.addf("%s.items: required field is missing", path)
		return meal
	}
	itemsList, ok := itemsRaw.([]any)
	if !ok {
		v.addf("%s.items: expected array", path)
		return meal
	}
	if len(itemsList) < MinMealItems || len(itemsList) > MaxMealItems {
		v.addf("%s.items: expected between %d and %d items, got %d", path, MinMealItems, MaxMealItems, len(itemsList))
	}

	for i, itemRaw := range itemsList {
		meal.Items = append(meal.Items, v.planItem(fmt.Sprintf("%s.items[%d]", path, i), itemRaw))
	}
	return meal
}

func (v *validator) planItem(path string, raw any) PlanItem {
	obj, ok := raw.(map[string]any)
	if !ok {
		v.addf("%s: expected object", path)
		return PlanItem{}
	}

	item := PlanItem{Name: v.stringField2(path, obj, "name")}

	idRaw, ok := obj["id"]
	if !ok {
		v.addf("%s.id: required field is missing", path)
		return item
	}
	// encoding/jsonは数値をfloat64で返すため、整数かどうかをここで確認する
	idFloat, ok := idRaw.(float64)
	if !ok || idFloat != math.Trunc(idFloat) {
		v.addf("%s.id: expected integer", path)
		return item
	}
	item.ID = int64(idFloat)
	return item
}

// stringField2 はネストしたパス付きでstringFieldと同じ検証を行う
func (v *validator) stringField2(path string, obj map[string]any, key string) string {
	raw, ok := obj[key]
	if !ok {
		v.addf("%s.%s: required field is missing", path, key)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.addf("%s.%s: expected string", path, key)
		return ""
	}
	return s
}

func validMealName(name string) bool {
	for _, n := range MealNames {
		if name == n {
			return true
		}
	}
	return false
}
