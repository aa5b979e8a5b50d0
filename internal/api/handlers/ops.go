package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/auth"
	"github.com/minhngoc/codepay-backend/internal/middleware"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/services"
)

// Ops is the authenticated back-office API: the same decisions the admin
// bot makes, plus read access, for operators using tooling instead of chat.
type Ops struct {
	tm          *auth.TokenManager
	opsUsername string
	opsHash     string
	workflow    *services.WorkflowService
	customers   *services.CustomerService
}

func NewOps(tm *auth.TokenManager, opsUsername, opsHash string, workflow *services.WorkflowService, customers *services.CustomerService) *Ops {
	return &Ops{tm: tm, opsUsername: opsUsername, opsHash: opsHash, workflow: workflow, customers: customers}
}

type tokenResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (h *Ops) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed payload", nil)
		return
	}
	if req.Username != h.opsUsername || auth.VerifyPassword(req.Password, h.opsHash) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
		return
	}
	access, refresh, exp, err := h.tm.GeneratePair(req.Username, "admin")
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp})
}

func (h *Ops) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed payload", nil)
		return
	}
	claims, isRefresh, err := h.tm.ParseAny(req.RefreshToken)
	if err != nil || !isRefresh {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	access, refresh, exp, err := h.tm.GeneratePair(claims.Username, claims.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp})
}

func (h *Ops) ListTransactions(w http.ResponseWriter, r *http.Request) {
	status := models.TransactionStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.TxnAdminReview
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	txns, err := h.workflow.ListByStatus(r.Context(), status, limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txns)
}

func (h *Ops) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "transaction not found", nil)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txn)
}

func (h *Ops) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "customer not found", nil)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, customer)
}

func (h *Ops) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.ActionApproved)
}

func (h *Ops) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.ActionRejected)
}

func (h *Ops) decide(w http.ResponseWriter, r *http.Request, action models.AdminActionType) {
	var req struct {
		Note       string `json:"note"`
		PayoutData string `json:"payout_data"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	claims, _ := middleware.GetClaims(r.Context())

	res, err := h.workflow.Decide(r.Context(), chi.URLParam(r, "id"), services.Decision{
		AdminID:    "ops:" + claims.Username,
		Action:     action,
		Note:       req.Note,
		PayoutData: req.PayoutData,
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "transaction not found", nil)
		return
	case errors.Is(err, models.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, "invalid_transition", "transaction is not in review", nil)
		return
	case errors.Is(err, models.ErrInsufficientFunds):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", "customer balance is too low", nil)
		return
	case err != nil:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res.Transaction)
}
