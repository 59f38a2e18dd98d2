package errors

import (
	"net/http"

	"chatbackend/pkg/common"

	"go.uber.org/zap"
)

// ErrorHandler handles errors and sends appropriate HTTP responses
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle processes an error and sends an HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := w.Header().Get("X-Request-ID")

	var status int
	var info *common.ErrorInfo

	if appErr := GetAppError(err); appErr != nil {
		status = appErr.HTTPStatus
		if status == 0 {
			status = h.defaultStatus
		}

		info = &common.ErrorInfo{
			Type:    string(appErr.Type),
			Message: appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		}

		h.logError(r, appErr, status, requestID)

		// Stack traces stay in logs; expose them in the payload only in debug mode
		if h.debug && appErr.StackTrace != "" {
			if info.Details == nil {
				info.Details = make(map[string]interface{})
			}
			info.Details["stack_trace"] = appErr.StackTrace
		}
	} else {
		// Generic errors never leak internals to the client
		status = h.defaultStatus
		info = &common.ErrorInfo{
			Type:    string(ErrorTypeInternal),
			Message: "An internal error occurred",
		}

		h.logger.Error("unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
	}

	common.RespondErrorInfo(w, status, info, requestID)
}

func (h *ErrorHandler) logError(r *http.Request, appErr *AppError, status int, requestID string) {
	fields := []zap.Field{
		zap.String("type", string(appErr.Type)),
		zap.String("message", appErr.Message),
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID),
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
}
