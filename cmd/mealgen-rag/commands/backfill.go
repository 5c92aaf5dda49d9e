package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mealgen/rag-service/internal/core/embedding"
)

// BackfillItemsAction は商品ドキュメントのEmbeddingをバックフィルする
func BackfillItemsAction(ctx context.Context, cmd *cli.Command) error {
	return runBackfill(ctx, cmd, embedding.SpaceItem)
}

// BackfillNutritionAction は栄養情報ドキュメントのEmbeddingをバックフィルする
func BackfillNutritionAction(ctx context.Context, cmd *cli.Command) error {
	return runBackfill(ctx, cmd, embedding.SpaceNutrition)
}

// BackfillIngredientsAction は原材料ドキュメントのEmbeddingをバックフィルする
func BackfillIngredientsAction(ctx context.Context, cmd *cli.Command) error {
	return runBackfill(ctx, cmd, embedding.SpaceIngredients)
}

func runBackfill(ctx context.Context, cmd *cli.Command, space embedding.Space) error {
	envFile := cmd.String("env")
	storeStr := cmd.String("store")
	limit := cmd.Int("limit")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var store *string
	if storeStr != "" {
		store = &storeStr
	}

	result, err := appCtx.Backfill.Backfill(ctx, embedding.BackfillParams{
		Space: space,
		Store: store,
		Limit: limit,
	})
	if err != nil {
		return fmt.Errorf("バックフィルに失敗: %w", err)
	}

	fmt.Printf("✓ %s のバックフィルが完了しました\n", space)
	fmt.Printf("  Updated: %d\n", result.Updated)
	fmt.Printf("  Skipped: %d\n", result.Skipped)

	return nil
}
