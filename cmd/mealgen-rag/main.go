package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mealgen/rag-service/cmd/mealgen-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "mealgen-rag",
		Usage: "スーパーマーケットのカタログに接地したミールプラン生成RAGサービス",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "HTTPサーバを起動",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "リッスンアドレス（省略時は環境変数またはデフォルトの:8090）",
					},
				},
				Action: commands.ServeAction,
			},
			{
				Name:  "migrate",
				Usage: "データベースマイグレーションを適用",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: commands.MigrateAction,
			},
			{
				Name:  "backfill",
				Usage: "Embeddingバックフィルコマンド",
				Commands: []*cli.Command{
					{
						Name:   "items",
						Usage:  "商品ドキュメントのEmbeddingをバックフィル",
						Flags:  backfillFlags(),
						Action: commands.BackfillItemsAction,
					},
					{
						Name:   "nutrition",
						Usage:  "栄養情報ドキュメントのEmbeddingをバックフィル",
						Flags:  backfillFlags(),
						Action: commands.BackfillNutritionAction,
					},
					{
						Name:   "ingredients",
						Usage:  "原材料ドキュメントのEmbeddingをバックフィル",
						Flags:  backfillFlags(),
						Action: commands.BackfillIngredientsAction,
					},
				},
			},
			{
				Name:  "generate",
				Usage: "ミールプランを生成して表示",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "store",
						Usage:    "ストア名",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "プラン日数 (1-14)",
						Value: 7,
					},
					&cli.StringFlag{
						Name:  "diet",
						Usage: "食事制限 (例: vegetarian)",
					},
					&cli.StringFlag{
						Name:  "allergies",
						Usage: "アレルギー・苦手な食材",
					},
					&cli.IntFlag{
						Name:  "calories",
						Usage: "1日の目標カロリー",
					},
				},
				Action: commands.GenerateAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// backfillFlags はバックフィルサブコマンド共通のフラグ定義を返す
func backfillFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "ストア名（絞り込み）",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "処理する最大行数（省略時はデフォルト）",
		},
	}
}
