package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// writeServiceError maps a service error onto a status code and error body
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	fields := map[string]interface{}{
		"request_id": requestID,
		"error":      err.Error(),
	}

	switch {
	case errors.Is(err, entity.ErrInvalidCurrency):
		log.Warn("Unsupported currency requested", fields)
		sendErrorResponse(w, log, "Unsupported currency",
			"One of the requested currency codes is not supported", http.StatusBadRequest, requestID)
	case errors.Is(err, entity.ErrInvalidAmount),
		errors.Is(err, entity.ErrInvalidPagination),
		errors.Is(err, entity.ErrInvalidDateRange):
		log.Warn("Invalid request", fields)
		sendErrorResponse(w, log, "Invalid request", err.Error(), http.StatusBadRequest, requestID)
	case errors.Is(err, entity.ErrNoRateData),
		errors.Is(err, entity.ErrNoTimeSeriesData),
		errors.Is(err, entity.ErrRateNotFound):
		log.Warn("No rate data available", fields)
		sendErrorResponse(w, log, "Rate data not found", err.Error(), http.StatusNotFound, requestID)
	case errors.Is(err, entity.ErrCircuitOpen):
		log.Error("Rate source circuit open", fields)
		sendErrorResponse(w, log, "Service temporarily unavailable",
			"The exchange rate service is temporarily unavailable. Please try again later.",
			http.StatusServiceUnavailable, requestID)
	case errors.Is(err, entity.ErrTransient):
		log.Error("Rate source unavailable", fields)
		sendErrorResponse(w, log, "Exchange rate service unavailable",
			"Unable to retrieve exchange rate data. Please try again later.",
			http.StatusServiceUnavailable, requestID)
	default:
		log.Error("Unexpected error", fields)
		sendErrorResponse(w, log, "Internal server error",
			"An unexpected error occurred. Please try again later.",
			http.StatusInternalServerError, requestID)
	}
}

func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	writeJSON(w, statusCode, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
