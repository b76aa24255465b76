package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/httpmetrics"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.log.WithFields(ctx, logger.Fields{
			"action": "request_timeout",
		}).Warnf("request timed out: %v", err)
		h.countHTTPError(r, http.StatusGatewayTimeout)
		WriteErrorEnvelope(w, http.StatusGatewayTimeout, "TIMEOUT", "request timed out", traceID)
		return
	}

	h.log.WithFields(ctx, logger.Fields{
		"error":  err.Error(),
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	h.countHTTPError(r, http.StatusInternalServerError)
	WriteErrorEnvelope(w, http.StatusInternalServerError, CodeInternal, "internal server error", traceID)
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError) {
	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	domainErr := err
	if traceID != "" && err.TraceID() == "" {
		domainErr = err.WithTraceID(traceID)
	}

	status := domainErr.HTTPStatus()
	logFields := logger.Fields{
		"error_code": domainErr.Code(),
		"category":   string(domainErr.Category()),
		"status":     status,
		"action":     "domain_error",
	}

	// Storage detail stays in the log; the client only sees the stable message.
	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, logFields).Errorf("domain error: %s", domainErr.Error())
	} else if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, logFields).Debugf("domain error: %s", domainErr.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(domainErr.Category()),
		domainErr.Code(),
		strconv.Itoa(status),
	).Inc()
	h.countHTTPError(r, status)

	WriteErrorEnvelope(w, status, domainErr.Code(), domainErr.Message(), domainErr.TraceID())
}

func (h *ErrorHandler) countHTTPError(r *http.Request, status int) {
	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()
}

func HandleError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	NewErrorHandler(log).HandleError(w, r, err)
}
