package planner

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPlanJSON は1日分の妥当なプランJSONを組み立てる
func validPlanJSON(t *testing.T) string {
	t.Helper()
	doc := map[string]any{
		"title":     "Test Plan",
		"startDate": "2026-08-29",
		"endDate":   "2026-08-29",
		"plan": []any{
			map[string]any{
				"date": "2026-08-29",
				"meals": []any{
					map[string]any{"name": "Breakfast", "items": []any{map[string]any{"id": 1, "name": "Oats"}}},
					map[string]any{"name": "Lunch", "items": []any{map[string]any{"id": 2, "name": "Soup"}}},
					map[string]any{"name": "Dinner", "items": []any{map[string]any{"id": 3, "name": "Rice"}}},
				},
			},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func TestValidatePlan_Valid(t *testing.T) {
	doc, err := ValidatePlan(validPlanJSON(t))

	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Test Plan", doc.Title)
	require.Len(t, doc.Plan, 1)
	require.Len(t, doc.Plan[0].Meals, 3)
	assert.Equal(t, int64(1), doc.Plan[0].Meals[0].Items[0].ID)
}

func TestValidatePlan_NotJSON(t *testing.T) {
	_, err := ValidatePlan("Sure! Here is your meal plan:")

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.NotJSON)
}

func TestValidatePlan_MissingTitle(t *testing.T) {
	_, err := ValidatePlan(`{"startDate":"2026-08-29","endDate":"2026-08-29","plan":[]}`)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Violations[0], "title")
}

func TestValidatePlan_WrongMealCount(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[{"id":1,"name":"x"}]},
		{"name":"Lunch","items":[{"id":2,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "exactly 3 meals")
}

func TestValidatePlan_DuplicateMealName(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[{"id":1,"name":"x"}]},
		{"name":"Breakfast","items":[{"id":2,"name":"x"}]},
		{"name":"Dinner","items":[{"id":3,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "more than once")
}

func TestValidatePlan_InvalidMealName(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Brunch","items":[{"id":1,"name":"x"}]},
		{"name":"Lunch","items":[{"id":2,"name":"x"}]},
		{"name":"Dinner","items":[{"id":3,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "Brunch")
}

func TestValidatePlan_EmptyItems(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[]},
		{"name":"Lunch","items":[{"id":2,"name":"x"}]},
		{"name":"Dinner","items":[{"id":3,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "between 1 and 8")
}

func TestValidatePlan_TooManyItems(t *testing.T) {
	items := ""
	for i := 0; i < 9; i++ {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"id":%d,"name":"x"}`, i+1)
	}
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[` + items + `]},
		{"name":"Lunch","items":[{"id":20,"name":"x"}]},
		{"name":"Dinner","items":[{"id":21,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "between 1 and 8")
}

func TestValidatePlan_FractionalID(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[{"id":1.5,"name":"x"}]},
		{"name":"Lunch","items":[{"id":2,"name":"x"}]},
		{"name":"Dinner","items":[{"id":3,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "expected integer")
}

func TestValidatePlan_StringID(t *testing.T) {
	raw := `{"title":"t","startDate":"d","endDate":"d","plan":[{"date":"d","meals":[
		{"name":"Breakfast","items":[{"id":"1","name":"x"}]},
		{"name":"Lunch","items":[{"id":2,"name":"x"}]},
		{"name":"Dinner","items":[{"id":3,"name":"x"}]}
	]}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "expected integer")
}

func TestValidatePlan_ViolationsCapped(t *testing.T) {
	// 全フィールドが欠けた日を多数並べて違反を大量に発生させる
	raw := `{"plan":[{},{},{},{},{},{},{}]}`

	_, err := ValidatePlan(raw)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Violations, 5)
}

func TestExtractItemIDs(t *testing.T) {
	doc, err := ValidatePlan(validPlanJSON(t))
	require.NoError(t, err)

	ids := ExtractItemIDs(doc)

	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}
