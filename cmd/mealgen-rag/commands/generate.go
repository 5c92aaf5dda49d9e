package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mealgen/rag-service/internal/core/planner"
)

// GenerateAction はミールプランを生成して標準出力に表示するコマンドのアクション
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	store := cmd.String("store")
	days := cmd.Int("days")
	dietStr := cmd.String("diet")
	allergiesStr := cmd.String("allergies")
	calories := cmd.Int("calories")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	prefs := planner.Preferences{}
	if dietStr != "" {
		prefs.DietaryRestrictions = &dietStr
	}
	if allergiesStr != "" {
		prefs.Allergies = &allergiesStr
	}
	if calories > 0 {
		prefs.TargetCaloriesPerDay = &calories
	}

	result, err := appCtx.Planner.Generate(ctx, planner.GenerateParams{
		Store:       store,
		Days:        days,
		Preferences: prefs,
	})
	if err != nil {
		return fmt.Errorf("プラン生成に失敗: %w", err)
	}

	fmt.Printf("✓ プランを生成しました\n")
	fmt.Printf("  Title: %s\n", result.Title)
	fmt.Printf("  Period: %s 〜 %s\n", result.StartDate, result.EndDate)
	fmt.Println()
	fmt.Println(result.PlanJSON)

	return nil
}
