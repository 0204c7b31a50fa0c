package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"file-access-ledger-go/internal/auth"
	"file-access-ledger-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; ledger requests are a few short fields.
const maxBodyBytes = 64 << 10

// Handler serves the ledger over HTTP
type Handler struct {
	ledger   *LedgerService
	tokens   *auth.TokenService
	validate *validator.Validate
	writes   *callerLimiter
}

// HandlerOption customizes a Handler
type HandlerOption func(*Handler)

// WithWriteLimit caps mutating requests per caller identity per minute; zero disables the cap
func WithWriteLimit(perMinute int) HandlerOption {
	return func(h *Handler) {
		h.writes = newCallerLimiter(perMinute)
	}
}

func NewHandler(ledger *LedgerService, tokens *auth.TokenService, opts ...HandlerOption) *Handler {
	h := &Handler{
		ledger:   ledger,
		tokens:   tokens,
		validate: validator.New(),
		writes:   newCallerLimiter(DefaultWritesPerMinute),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *Handler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	h.respondWithJSON(w, status, body)
}

// respondWithLedgerError hides internal failures behind a generic message.
func (h *Handler) respondWithLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondWithError(w, status, errorCode(err), "internal error")
		return
	}
	h.respondWithError(w, status, errorCode(err), err.Error())
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		zap.L().Debug("Failed to write response", zap.Error(err))
	}
}

func tokenIdParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id >= 0
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondWithError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "request body too large")
			return false
		}
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid payload: "+err.Error())
		return false
	}
	return true
}

// handleHealth (GET /healthz)
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		h.respondWithError(w, http.StatusServiceUnavailable, "Unavailable", "ledger unavailable")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMint (POST /v1/tokens)
func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	var req models.MintRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.Mint(r.Context(), req)
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, result)
}

// handleGetToken (GET /v1/tokens/{id})
func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIdParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid token id")
		return
	}

	token, err := h.ledger.GetToken(r.Context(), id)
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, token)
}

// handleBuyAccess (POST /v1/tokens/{id}/purchase)
func (h *Handler) handleBuyAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIdParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid token id")
		return
	}
	var req models.PurchaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ledger.BuyAccess(r.Context(), id, req); err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, models.PurchaseStatus{
		TokenId:   id,
		Identity:  models.CallerFromContext(r.Context()),
		Purchased: true,
	})
}

// handleTransfer (POST /v1/tokens/{id}/transfer)
func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIdParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid token id")
		return
	}
	var req models.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ledger.TransferToken(r.Context(), id, req); err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePurchaseStatus (GET /v1/tokens/{id}/purchases/{identity})
func (h *Handler) handlePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := tokenIdParam(r)
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid token id")
		return
	}

	status, err := h.ledger.PurchaseStatus(r.Context(), id, chi.URLParam(r, "identity"))
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, status)
}

// handleTokensOfOwner (GET /v1/owners/{identity}/tokens)
func (h *Handler) handleTokensOfOwner(w http.ResponseWriter, r *http.Request) {
	owned, err := h.ledger.TokensOfOwner(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, owned)
}

// handleStats (GET /v1/stats)
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}

// handleEvents (GET /v1/events?after=&limit=)
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	after, limit := int64(0), 0
	var err error
	if v := query.Get("after"); v != "" {
		if after, err = strconv.ParseInt(v, 10, 64); err != nil {
			h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid after parameter")
			return
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			h.respondWithError(w, http.StatusBadRequest, "BadRequest", "invalid limit parameter")
			return
		}
	}

	events, err := h.ledger.Events(r.Context(), after, limit)
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, events)
}

// handleBalance (GET /v1/me/balance)
func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context())
	if err != nil {
		h.respondWithLedgerError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, balance)
}
