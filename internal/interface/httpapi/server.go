package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/mealgen/rag-service/internal/core/embedding"
	"github.com/mealgen/rag-service/internal/core/planner"
)

// sharedSecretHeader はサービス間認証用の共有シークレットを運ぶヘッダ名
const sharedSecretHeader = "X-RAG-Secret"

// Server はRAGサービスのHTTPインターフェース
type Server struct {
	planner  *planner.Service
	backfill *embedding.BackfillService
	secret   string
	logger   *slog.Logger
}

// ServerOption はServerのオプション設定
type ServerOption func(*Server)

// WithSharedSecret は共有シークレットを設定する（空なら認証なし）
func WithSharedSecret(secret string) ServerOption {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithServerLogger はロガーを設定する
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer は新しいServerを作成する
func NewServer(plannerSvc *planner.Service, backfillSvc *embedding.BackfillService, opts ...ServerOption) *Server {
	srv := &Server{
		planner:  plannerSvc,
		backfill: backfillSvc,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	return srv
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /generate", s.withAuth(s.handleGenerate))
	mux.HandleFunc("POST /embed/backfill", s.withAuth(s.handleBackfill(embedding.SpaceItem)))
	mux.HandleFunc("POST /embed/backfill/items", s.withAuth(s.handleBackfill(embedding.SpaceItem)))
	mux.HandleFunc("POST /embed/backfill/nutrition", s.withAuth(s.handleBackfill(embedding.SpaceNutrition)))
	mux.HandleFunc("POST /embed/backfill/ingredients", s.withAuth(s.handleBackfill(embedding.SpaceIngredients)))

	return mux
}

// withAuth は共有シークレットが設定されている場合にヘッダを検証する
// 暗号資格情報ではなく運用上のゲートなので、等価比較で十分だが
// subtle.ConstantTimeCompareを使っておく
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.secret != "" {
			got := r.Header.Get(sharedSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid shared secret")
				return
			}
		}
		next(w, r)
	}
}
