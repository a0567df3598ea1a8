// Package httpapi exposes the research pipeline over HTTP.
// Endpoints:
//
//	POST /api/research
//	GET  /healthz
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/budget"
	"github.com/Aiden-Hyun/deepanswer/internal/orchestrator"
)

// Authorizer is the external auth collaborator reduced to what the core
// needs: authorized-or-not plus an identity for logging and quota.
type Authorizer interface {
	Authorize(r *http.Request) (identity string, ok bool)
}

// StaticTokenAuthorizer accepts requests bearing a fixed token. An empty
// token permits everything; identity is then "anonymous".
type StaticTokenAuthorizer struct {
	Token string
}

// Authorize checks the Authorization header.
func (a StaticTokenAuthorizer) Authorize(r *http.Request) (string, bool) {
	if a.Token == "" {
		return "anonymous", true
	}
	if r.Header.Get("Authorization") == "Bearer "+a.Token {
		return "token-client", true
	}
	return "", false
}

// ResearchRequest is the inbound request body.
type ResearchRequest struct {
	Question    string `json:"question"`
	Model       string `json:"model,omitempty"`
	ModelConfig struct {
		SynthesisModel string `json:"synthesis_model,omitempty"`
		TimeMs         int64  `json:"time_ms,omitempty"`
		Searches       int    `json:"searches,omitempty"`
		Fetches        int    `json:"fetches,omitempty"`
	} `json:"modelConfig,omitempty"`
}

// Handler serves the research endpoint.
type Handler struct {
	workflow *orchestrator.Workflow
	auth     Authorizer
	logger   *zap.Logger
}

// NewHandler constructs the handler.
func NewHandler(workflow *orchestrator.Workflow, auth Authorizer, logger *zap.Logger) *Handler {
	return &Handler{workflow: workflow, auth: auth, logger: logger}
}

// RegisterRoutes registers endpoints on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/research", h.handleResearch)
	mux.HandleFunc("/healthz", h.handleHealth)
}

func (h *Handler) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	identity, ok := h.auth.Authorize(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
		return
	}

	h.logger.Info("Research request",
		zap.String("identity", identity),
		zap.Int("question_len", len(req.Question)),
	)

	opts := orchestrator.Options{
		ReasoningModel: req.Model,
		SynthesisModel: req.ModelConfig.SynthesisModel,
		Budget: budget.Overrides{
			TimeMs:   req.ModelConfig.TimeMs,
			Searches: req.ModelConfig.Searches,
			Fetches:  req.ModelConfig.Fetches,
		},
	}

	result, err := h.workflow.Run(r.Context(), req.Question, opts)
	if err != nil {
		h.logger.Error("Research run failed", zap.String("identity", identity), zap.Error(err))
		http.Error(w, `{"error":"research failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
