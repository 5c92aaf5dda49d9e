package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	migrations "github.com/mealgen/rag-service/db"
	"github.com/mealgen/rag-service/pkg/config"
	"github.com/mealgen/rag-service/pkg/db"
)

// MigrateAction はデータベースマイグレーションを適用するコマンドのアクション
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	params := db.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}

	if err := migrations.Migrate(params.URL()); err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	fmt.Println("✓ マイグレーションが完了しました")
	return nil
}
