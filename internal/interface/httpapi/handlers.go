package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mealgen/rag-service/internal/core/embedding"
	"github.com/mealgen/rag-service/internal/core/planner"
)

// errorResponse はAPIエラーレスポンスの共通形式
type errorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message,omitempty"`
	Violations []string `json:"violations,omitempty"`
	MissingIDs []int64  `json:"missingIds,omitempty"`
}

// generateRequest はプラン生成リクエストのボディ
type generateRequest struct {
	UserID      int64               `json:"userId"`
	Store       string              `json:"store"`
	Days        int                 `json:"days"`
	Preferences planner.Preferences `json:"preferences"`
}

// generateResponse はプラン生成レスポンスのボディ
// planJsonはMealPlanDocをシリアライズした文字列。コンシューマは文字列として取り出す
type generateResponse struct {
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	PlanJSON  string `json:"planJson"`
}

// backfillRequest はバックフィルリクエストのボディ（省略可）
type backfillRequest struct {
	Store *string `json:"store,omitempty"`
	Limit int     `json:"limit,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	result, err := s.planner.Generate(r.Context(), planner.GenerateParams{
		Store:       req.Store,
		Days:        req.Days,
		Preferences: req.Preferences,
	})
	if err != nil {
		s.writeGenerateError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "plan generated",
		"user_id", req.UserID, "store", req.Store, "days", req.Days)

	writeJSON(w, http.StatusOK, generateResponse{
		Title:     result.Title,
		StartDate: result.StartDate,
		EndDate:   result.EndDate,
		PlanJSON:  result.PlanJSON,
	})
}

// writeGenerateError はプラン生成エラーをHTTPステータスへ写像する
// バリデーションと接地の失敗はプロバイダ応答の本文を漏らさない
func (s *Server) writeGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *planner.SchemaError
	var groundingErr *planner.GroundingError

	switch {
	case errors.Is(err, planner.ErrInvalidDays),
		errors.Is(err, planner.ErrStoreRequired):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, planner.ErrNotReady):
		writeError(w, http.StatusBadRequest, "not_ready", err.Error())
	case errors.As(err, &schemaErr):
		s.logger.Error("generated plan failed schema validation", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:      "schema_invalid",
			Message:    "generated plan did not match the expected schema",
			Violations: schemaErr.Violations,
		})
	case errors.As(err, &groundingErr):
		s.logger.Error("generated plan failed grounding verification", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:      "grounding_failed",
			Message:    "generated plan referenced items outside the catalog",
			MissingIDs: groundingErr.Missing,
		})
	case errors.Is(err, planner.ErrUpstreamEmpty):
		s.logger.Error("upstream returned an empty completion")
		writeError(w, http.StatusInternalServerError, "upstream_empty", "model returned an empty response")
	default:
		s.logger.Error("failed to generate meal plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to generate meal plan")
	}
}

func (s *Server) handleBackfill(space embedding.Space) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backfillRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
				return
			}
		}

		result, err := s.backfill.Backfill(r.Context(), embedding.BackfillParams{
			Space: space,
			Store: req.Store,
			Limit: req.Limit,
		})
		if errors.Is(err, embedding.ErrBackfillInProgress) {
			writeError(w, http.StatusConflict, "backfill_in_progress", err.Error())
			return
		}
		if err != nil {
			s.logger.Error("failed to backfill embeddings", "space", string(space), "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to backfill embeddings")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
