package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mealgen/rag-service/internal/interface/httpapi"
)

// shutdownTimeout はGraceful Shutdownの待機時間
const shutdownTimeout = 10 * time.Second

// ServeAction はHTTPサーバを起動するコマンドのアクション
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	addr := cmd.String("addr")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if addr == "" {
		addr = appCtx.Config.HTTPAddr
	}

	srv := httpapi.NewServer(appCtx.Planner, appCtx.Backfill,
		httpapi.WithSharedSecret(appCtx.Config.SharedSecret),
		httpapi.WithServerLogger(appCtx.Logger),
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("HTTPサーバを起動", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appCtx.Logger.Info("シャットダウンシグナルを受信")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバのシャットダウンに失敗: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバの起動に失敗: %w", err)
		}
		return nil
	}
}
