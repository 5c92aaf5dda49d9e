package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mealgen/rag-service/internal/core/catalog"
	"github.com/mealgen/rag-service/internal/core/retrieval"
)

// Embedder はクエリテキストを1ベクトルに変換する
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// ChatClient は生成モデルとの通信インターフェース
type ChatClient interface {
	// GenerateCompletion は1回だけモデルを呼び出し、生テキストを返す
	GenerateCompletion(ctx context.Context, req CompletionRequest) (string, error)
	ModelName() string
}

// CompletionRequest は生成モデルへの1リクエスト
type CompletionRequest struct {
	System string
	// Messages は順序どおりに送るユーザーメッセージ
	Messages    []string
	Temperature float64
	// ForceJSON はJSONオブジェクト出力を強制する
	ForceJSON bool
}

// Retriever は候補検索インターフェース
type Retriever interface {
	Retrieve(ctx context.Context, store string, queryVector []float32, k int) ([]catalog.Candidate, error)
}

// generatedBy はPlanMetaに記録するこのサービスの識別子
const generatedBy = "mealgen-rag-go"

// DefaultTemperature は生成呼び出しの既定温度
const DefaultTemperature = 0.4

// Service はプラン生成のオーケストレーションを提供する
// 検索→生成→スキーマ検証→グラウンディング検証を1リクエスト内で逐次実行する。
// 生成は一発勝負で、失敗・空出力・検証不合格のどれでも再試行しない。
type Service struct {
	embedder    Embedder
	chat        ChatClient
	retriever   Retriever
	verifier    *Verifier
	counter     TokenCounter
	k           int
	temperature float64
	tokenBudget int
	now         func() time.Time
	logger      *slog.Logger
}

// ServiceOption はServiceのオプション設定
type ServiceOption func(*Service)

// WithRetrievalK は候補検索の件数を設定する
func WithRetrievalK(k int) ServiceOption {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithTemperature は生成温度を設定する
func WithTemperature(t float64) ServiceOption {
	return func(s *Service) {
		s.temperature = t
	}
}

// WithTokenCounter はペイロード境界用のトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter, budget int) ServiceOption {
	return func(s *Service) {
		s.counter = counter
		s.tokenBudget = budget
	}
}

// WithClock は現在時刻の取得関数を差し替える（テスト用）
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithPlannerLogger はロガーを設定する
func WithPlannerLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しいプラン生成サービスを作成する
func NewService(embedder Embedder, chat ChatClient, retriever Retriever, verifier *Verifier, opts ...ServiceOption) *Service {
	svc := &Service{
		embedder:    embedder,
		chat:        chat,
		retriever:   retriever,
		verifier:    verifier,
		k:           retrieval.DefaultK,
		temperature: DefaultTemperature,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Generate はストアのカタログに接地したミールプランを1回の生成で作る
// 候補ゼロはErrNotReady、空出力はErrUpstreamEmpty、スキーマ違反はSchemaError、
// 実在しないID参照はGroundingErrorとなり、いずれも部分的な結果は返さない。
func (s *Service) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	// 何か仕事をする前に入力を拒否する
	if params.Days < MinDays || params.Days > MaxDays {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDays, params.Days)
	}
	if strings.TrimSpace(params.Store) == "" {
		return nil, ErrStoreRequired
	}

	requestID := uuid.NewString()
	logger := s.logger.With("ragRequestId", requestID, "store", params.Store, "days", params.Days)

	// 1. 好みを織り込んだ検索クエリを1ベクトルに変換する
	queryText := BuildQueryText(params.Store, params.Days, params.Preferences)
	queryVector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed retrieval query: %w", err)
	}

	// 2. 候補検索。空はエラーではなく「未準備」を意味する
	candidates, err := s.retriever.Retrieve(ctx, params.Store, queryVector, s.k)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNotReady
	}
	logger.Info("candidates retrieved", "count", len(candidates))

	start := s.now()
	end := start.AddDate(0, 0, params.Days-1)
	startDate := start.Format("2006-01-02")
	endDate := end.Format("2006-01-02")

	// 3. グラウンディングペイロードを組み立て、トークン上限に収める
	payload := groundingPayload{
		Store:       params.Store,
		Days:        params.Days,
		StartDate:   startDate,
		Preferences: params.Preferences,
		Items:       candidates,
	}
	payloadJSON, kept, err := marshalBoundedPayload(payload, s.counter, s.tokenBudget)
	if err != nil {
		return nil, err
	}
	if kept < len(candidates) {
		logger.Info("grounding payload trimmed to token budget", "kept", kept, "dropped", len(candidates)-kept)
	}

	// 4. 生成モデルを1回だけ呼び出す（再試行なし）
	content, err := s.chat.GenerateCompletion(ctx, CompletionRequest{
		System:      BuildSystemInstruction(params.Preferences),
		Messages:    []string{outputShapeInstruction, payloadJSON},
		Temperature: s.temperature,
		ForceJSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrUpstreamEmpty
	}

	// 5. スキーマ検証
	doc, err := ValidatePlan(content)
	if err != nil {
		logger.Warn("generated plan rejected by schema validation", "error", err)
		return nil, err
	}

	// 6. グラウンディング検証
	if err := s.verifier.VerifyItemIDs(ctx, params.Store, ExtractItemIDs(doc)); err != nil {
		logger.Warn("generated plan rejected by grounding verification", "error", err)
		return nil, err
	}

	// 7. 欠けていても妥当なフィールドには計算値で補完する
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = fmt.Sprintf("AI Meal Plan (%s, %d days)", strings.ToUpper(params.Store), params.Days)
	}
	if strings.TrimSpace(doc.StartDate) == "" {
		doc.StartDate = startDate
	}
	if strings.TrimSpace(doc.EndDate) == "" {
		doc.EndDate = endDate
	}

	planJSON, err := marshalPlanWithMeta(doc, PlanMeta{
		GeneratedBy:    generatedBy,
		Model:          s.chat.ModelName(),
		EmbeddingModel: s.embedder.ModelName(),
		RagRequestID:   requestID,
		RetrievalK:     s.k,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("meal plan generated", "title", doc.Title)

	return &GenerateResult{
		Title:     doc.Title,
		StartDate: doc.StartDate,
		EndDate:   doc.EndDate,
		PlanJSON:  planJSON,
	}, nil
}

// marshalPlanWithMeta は検証済みドキュメントに_metaを添えてシリアライズする
func marshalPlanWithMeta(doc *MealPlanDoc, meta PlanMeta) (string, error) {
	envelope := struct {
		*MealPlanDoc
		Meta PlanMeta `json:"_meta"`
	}{MealPlanDoc: doc, Meta: meta}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan document: %w", err)
	}
	return string(encoded), nil
}
