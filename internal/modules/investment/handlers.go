package investment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nguyenduc/fintrack/internal/domain"
)

// Handler handles investment HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new investment handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "investment").Logger(),
	}
}

// Routes registers the investment routes on the given router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/summary", h.HandleSummary)
	r.Get("/by-kind/{kind}", h.HandleListByKind)
	r.Post("/batch-update-price", h.HandleBatchUpdatePrice)

	r.Get("/stocks/{symbol}", h.HandleGetBySymbol)
	r.Post("/stocks/{symbol}/transactions", h.HandleAddTransactionBySymbol)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Post("/transactions", h.HandleAddTransaction)
		r.Delete("/transactions/{txID}", h.HandleDeleteTransaction)
	})
}

// HandleCreate opens a new investment for the caller
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.service.Create(userID, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, NewResponse(inv))
}

// HandleList returns the caller's investments, newest first
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.responses(list))
}

// HandleListByKind returns the caller's investments of one asset kind
func (h *Handler) HandleListByKind(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListByKind(userID, chi.URLParam(r, "kind"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.responses(list))
}

// HandleSummary returns the caller's portfolio rollup
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGet returns one investment
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Get(userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewResponse(inv))
}

// HandleGetBySymbol returns the caller's holding for a ticker symbol
func (h *Handler) HandleGetBySymbol(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetBySymbol(userID, chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewResponse(inv))
}

// HandleUpdate changes descriptive fields of an investment
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.service.Update(userID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewResponse(inv))
}

// HandleDelete removes an investment and its ledger
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleAddTransaction appends one ledger entry
func (h *Handler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var in TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, tx, err := h.service.AddTransaction(userID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
		"investment":  NewResponse(inv),
	})
}

// HandleAddTransactionBySymbol appends a ledger entry resolved by symbol
func (h *Handler) HandleAddTransactionBySymbol(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var in TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, tx, err := h.service.AddTransactionBySymbol(userID, chi.URLParam(r, "symbol"), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
		"investment":  NewResponse(inv),
	})
}

// HandleDeleteTransaction removes one ledger entry
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.DeleteTransaction(userID, chi.URLParam(r, "id"), chi.URLParam(r, "txID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewResponse(inv))
}

// HandleBatchUpdatePrice applies many price updates at once
func (h *Handler) HandleBatchUpdatePrice(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Items []BatchPriceItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	result := h.service.BatchSetPrice(userID, body.Items)
	h.writeJSON(w, http.StatusOK, result)
}

// Helper methods

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return userID, true
}

func (h *Handler) responses(list []domain.Investment) []Response {
	result := make([]Response, 0, len(list))
	for i := range list {
		result = append(result, NewResponse(&list[i]))
	}
	return result
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
