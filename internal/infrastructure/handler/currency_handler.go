// Package handler internal/infrastructure/handler/currency_handler.go
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/currency-converter/internal/application/service"
	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/damon-houk/currency-converter/internal/infrastructure/metrics"
	"github.com/damon-houk/currency-converter/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrencyCode is used by the rate endpoints when no code is given
	DefaultCurrencyCode = "EUR"
	// DefaultPageSize is the historical page size when none is given
	DefaultPageSize = 10
	// MaxPageSize bounds the historical page size
	MaxPageSize = 100
)

// MinAmount is the smallest amount accepted for conversion
var MinAmount = decimal.RequireFromString("0.01")

// CurrencyHandler handles HTTP requests for currencies, conversions and rates
type CurrencyHandler struct {
	service *service.ConversionService
	blocked map[string]struct{}
	// blockedMessage keeps the configured order for the error text
	blockedMessage string
	metrics        *metrics.Metrics
	logger         logger.Logger
	now            func() time.Time
}

// NewCurrencyHandler creates a new currency handler.
// Conversions involving any of the blocked codes are rejected with 400.
func NewCurrencyHandler(svc *service.ConversionService, blocked []string, m *metrics.Metrics, log logger.Logger) *CurrencyHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	set := make(map[string]struct{}, len(blocked))
	for _, code := range blocked {
		set[code] = struct{}{}
	}

	return &CurrencyHandler{
		service:        svc,
		blocked:        set,
		blockedMessage: fmt.Sprintf("Conversion involving %s is not supported.", strings.Join(blocked, ", ")),
		metrics:        m,
		logger:         log,
		now:            time.Now,
	}
}

// ListCurrencies handles GET /currencies
func (h *CurrencyHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	currencies, err := h.service.ListSupportedCurrencies(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	resp := make([]SupportedCurrencyResponse, 0, len(currencies))
	for _, c := range currencies {
		resp = append(resp, SupportedCurrencyResponse{Code: c.Code, Name: c.Name})
	}

	h.logger.Debug("Supported currencies listed", map[string]interface{}{
		"request_id": requestID,
		"count":      len(resp),
	})

	writeJSON(w, http.StatusOK, resp)
}

// Convert handles GET /conversions
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if h.metrics != nil {
		h.metrics.ConversionRequestsTotal.Inc()
	}

	query := r.URL.Query()
	from := query.Get("fromCurrencyCode")
	to := query.Get("toCurrencyCode")
	rawAmount := query.Get("amount")

	h.logger.Info("Handling conversion request", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"amount":     rawAmount,
	})

	if !h.validCode(w, "fromCurrencyCode", from, requestID) || !h.validCode(w, "toCurrencyCode", to, requestID) {
		return
	}

	if rawAmount == "" {
		sendErrorResponse(w, h.logger, "Missing amount parameter",
			"The 'amount' query parameter is required", http.StatusBadRequest, requestID)
		return
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || amount.LessThan(MinAmount) {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     rawAmount,
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"Amount must be a number greater than or equal to 0.01", http.StatusBadRequest, requestID)
		return
	}

	if h.isBlocked(from) || h.isBlocked(to) {
		h.logger.Warn("Conversion involves a blocked currency", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
		})
		sendErrorResponse(w, h.logger, "Unsupported currency", h.blockedMessage, http.StatusBadRequest, requestID)
		return
	}

	result, err := h.service.Convert(r.Context(), from, to, amount)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	h.logger.Debug("Conversion response ready", map[string]interface{}{
		"request_id":       requestID,
		"converted_amount": result.ConvertedAmount.String(),
	})

	writeJSON(w, http.StatusOK, newConversionResponse(result))
}

// LatestRates handles GET /exchange-rates/latest
func (h *CurrencyHandler) LatestRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if h.metrics != nil {
		h.metrics.LatestRequestsTotal.Inc()
	}

	code := queryOrDefault(r, "currencyCode", DefaultCurrencyCode)
	if !h.validCode(w, "currencyCode", code, requestID) {
		return
	}

	latest, err := h.service.GetLatestRates(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, newLatestRatesResponse(latest))
}

// HistoricalRates handles GET /exchange-rates/historical
func (h *CurrencyHandler) HistoricalRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if h.metrics != nil {
		h.metrics.HistoricalRequestsTotal.Inc()
	}

	code := queryOrDefault(r, "currencyCode", DefaultCurrencyCode)
	if !h.validCode(w, "currencyCode", code, requestID) {
		return
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	start, ok := h.dateParam(w, r, "startDate", today.AddDate(0, -1, 0), requestID)
	if !ok {
		return
	}
	end, ok := h.dateParam(w, r, "endDate", today, requestID)
	if !ok {
		return
	}

	pageNumber, ok := h.intParam(w, r, "pageNumber", 1, 1, 0, requestID)
	if !ok {
		return
	}
	pageSize, ok := h.intParam(w, r, "pageSize", DefaultPageSize, 1, MaxPageSize, requestID)
	if !ok {
		return
	}

	h.logger.Info("Handling historical rates request", map[string]interface{}{
		"request_id":  requestID,
		"currency":    code,
		"start_date":  start.Format(entity.DateLayout),
		"end_date":    end.Format(entity.DateLayout),
		"page_number": pageNumber,
		"page_size":   pageSize,
	})

	page, err := h.service.GetHistoricalRatesPaged(r.Context(), start, end, code, pageNumber, pageSize)
	if err != nil {
		writeServiceError(w, h.logger, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, newHistoricalRatesResponse(page))
}

// RegisterRoutes registers the currency handler routes
func (h *CurrencyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/currencies", h.ListCurrencies).Methods("GET")
	router.HandleFunc("/conversions", h.Convert).Methods("GET")
	router.HandleFunc("/exchange-rates/latest", h.LatestRates).Methods("GET")
	router.HandleFunc("/exchange-rates/historical", h.HistoricalRates).Methods("GET")

	h.logger.Info("Currency routes registered", map[string]interface{}{
		"routes": []string{
			"GET /currencies",
			"GET /conversions",
			"GET /exchange-rates/latest",
			"GET /exchange-rates/historical",
		},
	})
}

func (h *CurrencyHandler) isBlocked(code string) bool {
	_, ok := h.blocked[code]
	return ok
}

func (h *CurrencyHandler) validCode(w http.ResponseWriter, param, code, requestID string) bool {
	if code == "" {
		sendErrorResponse(w, h.logger, fmt.Sprintf("Missing %s parameter", param),
			fmt.Sprintf("The '%s' query parameter is required", param), http.StatusBadRequest, requestID)
		return false
	}
	if !entity.IsValidCurrencyCode(code) {
		h.logger.Warn("Invalid currency code", map[string]interface{}{
			"request_id": requestID,
			"param":      param,
			"currency":   code,
		})
		sendErrorResponse(w, h.logger, "Invalid currency code",
			fmt.Sprintf("'%s' must be three upper-case letters (e.g., EUR, GBP, USD)", param),
			http.StatusBadRequest, requestID)
		return false
	}
	return true
}

func (h *CurrencyHandler) dateParam(w http.ResponseWriter, r *http.Request, param string, fallback time.Time, requestID string) (time.Time, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return fallback, true
	}

	date, err := time.Parse(entity.DateLayout, raw)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid date",
			fmt.Sprintf("'%s' must use the format YYYY-MM-DD", param), http.StatusBadRequest, requestID)
		return time.Time{}, false
	}
	return date, true
}

// intParam parses an integer query parameter; hi of zero means unbounded
func (h *CurrencyHandler) intParam(w http.ResponseWriter, r *http.Request, param string, fallback, lo, hi int, requestID string) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi > 0 && n > hi) {
		description := fmt.Sprintf("'%s' must be an integer of at least %d", param, lo)
		if hi > 0 {
			description = fmt.Sprintf("'%s' must be an integer between %d and %d", param, lo, hi)
		}
		sendErrorResponse(w, h.logger, "Invalid pagination", description, http.StatusBadRequest, requestID)
		return 0, false
	}
	return n, true
}

func queryOrDefault(r *http.Request, param, fallback string) string {
	if v := r.URL.Query().Get(param); v != "" {
		return v
	}
	return fallback
}
