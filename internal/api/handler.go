package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-health/egret/internal/bus"
	"github.com/opensource-health/egret/internal/domain"
	"github.com/opensource-health/egret/internal/history"
	"github.com/opensource-health/egret/internal/pipeline"
	"github.com/opensource-health/egret/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	history  *history.Service
	version  string
	mode     domain.IntakeMode
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, b domain.EventBus, p *pipeline.Pipeline, hist *history.Service, version string, mode domain.IntakeMode) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      b,
		pipeline: p,
		history:  hist,
		version:  version,
		mode:     mode,
	}
}

// SubmitResponse is the response for POST /claims.
// In sync mode the decision is embedded; in async mode only the claim
// ID and ACCEPTED status are returned.
type SubmitResponse struct {
	ClaimID  string                     `json:"claimId"`
	Status   string                     `json:"status"`
	Result   *domain.AdjudicationResult `json:"result,omitempty"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// SubmitClaim handles POST /claims requests.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	// Parse request
	var req domain.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate required fields
	if req.MemberID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "memberId is required",
		})
		return
	}
	if req.TreatmentDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "treatmentDate is required",
		})
		return
	}
	if req.ClaimAmount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claimAmount must be positive",
		})
		return
	}

	claimID := uuid.New().String()

	// Fill in prior-claims counters before the claim itself is
	// persisted, so the same-day count excludes this submission.
	if h.history != nil {
		if err := h.history.Enrich(ctx, tenantID, &req); err != nil {
			slog.Warn("failed to enrich claim from history, using submitted counters",
				"claim_id", claimID,
				"error", err,
			)
		}
	}

	claim := &domain.Claim{
		ID:        claimID,
		TenantID:  tenantID,
		Request:   req,
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}

	if h.repo != nil {
		if err := h.repo.SaveClaim(ctx, tenantID, claim); err != nil {
			slog.Error("failed to save claim", "claim_id", claimID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save claim",
			})
			return
		}
	}

	// Async intake: acknowledge and hand off to the worker
	if h.mode == domain.ModeAsync && h.bus != nil {
		submission := &bus.ClaimSubmission{
			ClaimID:  claimID,
			TenantID: tenantID,
			Request:  req,
		}
		if err := bus.PublishSubmission(ctx, h.bus, tenantID, submission); err != nil {
			slog.Error("failed to publish claim", "claim_id", claimID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to enqueue claim",
			})
			return
		}

		resp := SubmitResponse{
			ClaimID: claimID,
			Status:  "ACCEPTED",
		}
		resp.Metadata.TraceID = traceID
		resp.Metadata.TotalMs = time.Since(start).Milliseconds()
		resp.Metadata.Version = h.version
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	// Sync intake: adjudicate in the request path

	// 1. Adjudicate
	result := h.pipeline.Adjudicate(ctx, tenantID, claimID, &req)
	result.ID = uuid.New().String()
	result.CreatedAt = time.Now().UTC()

	// 2. Persist the decision
	if h.repo != nil {
		if err := h.repo.SaveAdjudication(ctx, tenantID, result); err != nil {
			slog.Error("failed to save adjudication", "claim_id", claimID, "error", err)
		}
		if err := h.repo.UpdateClaimStatus(ctx, tenantID, claimID, result.Decision); err != nil {
			slog.Error("failed to update claim status", "claim_id", claimID, "error", err)
		}
	}
	if h.history != nil {
		h.history.RecordClaim(ctx, tenantID, req.MemberID, req.TreatmentDate)
	}

	// 3. Publish the decision for downstream consumers; manual reviews
	// land on the review queue as well
	if h.bus != nil {
		if err := bus.PublishDecision(ctx, h.bus, tenantID, result); err != nil {
			slog.Error("failed to publish decision", "claim_id", claimID, "error", err)
		}
	}

	// 4. Respond
	resp := SubmitResponse{
		ClaimID: claimID,
		Status:  string(result.Decision),
		Result:  result,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetClaim retrieves a claim by ID.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	claim, err := h.repo.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		slog.Error("failed to get claim", "id", claimID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "claim not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

// ListClaims returns recent claims, optionally filtered by member.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	memberID := r.URL.Query().Get("memberId")

	claims, err := h.repo.ListClaims(ctx, tenantID, memberID, 100)
	if err != nil {
		slog.Error("failed to list claims", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list claims",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	})
}

// GetClaimResult retrieves the adjudication result for a claim.
func (h *Handler) GetClaimResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetAdjudicationByClaim(ctx, tenantID, claimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Claim may still be in the async queue
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no decision for claim yet",
			})
			return
		}
		slog.Error("failed to get adjudication", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get decision",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AppealRequest is the request body for POST /claims/{id}/appeal.
type AppealRequest struct {
	Reason string `json:"reason"`
}

// SubmitAppeal re-opens a decided claim for human review.
// Only REJECTED and MANUAL_REVIEW claims can be appealed.
func (h *Handler) SubmitAppeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	var req AppealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "reason is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	claim, err := h.repo.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "claim not found",
		})
		return
	}

	if claim.Status != domain.DecisionRejected && claim.Status != domain.DecisionManualReview {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "only rejected or manual-review claims can be appealed",
		})
		return
	}

	appeal := &domain.Appeal{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		ClaimID:   claimID,
		Reason:    req.Reason,
		Status:    domain.AppealPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.SaveAppeal(ctx, tenantID, appeal); err != nil {
		slog.Error("failed to save appeal", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save appeal",
		})
		return
	}

	if h.bus != nil {
		if err := bus.PublishAppeal(ctx, h.bus, tenantID, appeal); err != nil {
			slog.Error("failed to publish appeal", "appeal_id", appeal.ID, "error", err)
		}
	}

	slog.Info("appeal submitted", "appeal_id", appeal.ID, "claim_id", claimID)
	writeJSON(w, http.StatusCreated, appeal)
}

// ListAppeals returns the appeals filed against a claim.
func (h *Handler) ListAppeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	appeals, err := h.repo.ListAppealsByClaim(ctx, tenantID, claimID)
	if err != nil {
		slog.Error("failed to list appeals", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list appeals",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appeals": appeals,
		"count":   len(appeals),
	})
}

// GetPolicy returns the policy terms the server adjudicates under.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Policy())
}

// GetExclusions returns the policy exclusion groups.
func (h *Handler) GetExclusions(w http.ResponseWriter, r *http.Request) {
	policy := h.pipeline.Policy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exclusions": policy.Exclusions,
		"count":      len(policy.Exclusions),
	})
}

// GetNetworkHospitals returns the network hospital list.
func (h *Handler) GetNetworkHospitals(w http.ResponseWriter, r *http.Request) {
	policy := h.pipeline.Policy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hospitals": policy.NetworkHospitals,
		"count":     len(policy.NetworkHospitals),
	})
}

// ListFraudRules returns all loaded fraud indicator rules from the engine.
// Rules are loaded at startup and can be reloaded via POST /fraud-rules/reload.
func (h *Handler) ListFraudRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.pipeline.FraudEngine().GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loadedRules,
		"count": len(loadedRules),
	})
}

// GetFraudRule retrieves a fraud rule by ID from the loaded engine rules.
func (h *Handler) GetFraudRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.pipeline.FraudEngine().GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateFraudRuleRequest is the request body for creating a fraud rule.
type CreateFraudRuleRequest struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Score       float64 `json:"score"`
	Flag        string  `json:"flag"`
	Enabled     bool    `json:"enabled"`
}

// GlobalTenantID is used for fraud rules that apply to all tenants.
const GlobalTenantID = "*"

// CreateFraudRule creates a new fraud rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /fraud-rules/reload to hot-reload into the engine.
func (h *Handler) CreateFraudRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateFraudRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Expression == "" || req.Flag == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, expression, and flag are required",
		})
		return
	}
	if req.Score < 0 || req.Score > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "score must be between 0 and 1",
		})
		return
	}

	rule := &domain.FraudRule{
		ID:          req.ID,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Score:       req.Score,
		Flag:        req.Flag,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression before persisting
	if err := h.pipeline.FraudEngine().ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveFraudRule(ctx, GlobalTenantID, rule); err != nil {
			slog.Error("failed to save fraud rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("fraud rule created", "id", rule.ID, "flag", rule.Flag)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /fraud-rules/reload to apply changes.",
	})
}

// ReloadFraudRules reloads all fraud rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadFraudRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListFraudRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list fraud rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.pipeline.FraudEngine().ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload fraud rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("fraud rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
