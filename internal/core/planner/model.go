package planner

// Preferences は利用者の食事の好み・制約
type Preferences struct {
	DietaryRestrictions  *string `json:"dietaryRestrictions,omitempty"`
	Allergies            *string `json:"allergies,omitempty"`
	TargetCaloriesPerDay *int    `json:"targetCaloriesPerDay,omitempty"`
}

// 固定の食事名。UIとの契約なので変更してはならない。
const (
	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"
)

// MealNames は1日に必ず1回ずつ現れる食事名の一覧
var MealNames = []string{MealBreakfast, MealLunch, MealDinner}

// 1食あたりのアイテム数の制約
const (
	MinMealItems = 1
	MaxMealItems = 8
)

// 生成可能な日数の範囲
const (
	MinDays = 1
	MaxDays = 14
)

// PlanItem はプラン内で参照されるカタログアイテム
type PlanItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Meal は1日の1食分
type Meal struct {
	Name  string     `json:"name"`
	Items []PlanItem `json:"items"`
}

// DayPlan は1日分のプラン
type DayPlan struct {
	Date  string `json:"date"`
	Meals []Meal `json:"meals"`
}

// MealPlanDoc は1回の生成リクエストの検証済み結果
// 永続化はしない。呼び出し側が必要に応じて保存する。
type MealPlanDoc struct {
	Title     string    `json:"title"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Plan      []DayPlan `json:"plan"`
}

// ExtractItemIDs はプラン内の全アイテムIDを出現順に返す（重複を含む）
func ExtractItemIDs(doc *MealPlanDoc) []int64 {
	var ids []int64
	for _, day := range doc.Plan {
		for _, meal := range day.Meals {
			for _, item := range meal.Items {
				ids = append(ids, item.ID)
			}
		}
	}
	return ids
}

// PlanMeta はレスポンスに添付するトレーサビリティ情報
// 検証対象のスキーマ自体には含まれない
type PlanMeta struct {
	GeneratedBy    string `json:"generatedBy"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embeddingModel"`
	RagRequestID   string `json:"ragRequestId"`
	RetrievalK     int    `json:"retrievalK"`
}

// GenerateParams はプラン生成のパラメータ
type GenerateParams struct {
	Store       string
	Days        int
	Preferences Preferences
}

// GenerateResult はプラン生成の結果
type GenerateResult struct {
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	// PlanJSON は検証済みMealPlanDocに_metaを付与してシリアライズしたもの
	PlanJSON string `json:"planJson"`
}
