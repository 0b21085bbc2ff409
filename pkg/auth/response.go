package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-auth/pkg/errors"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Data      interface{}            `json:"data,omitempty"`
	Code      apperrors.ErrorCode    `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RenderSuccess writes a success envelope with status.
func RenderSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Response{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// RenderError maps err to a status and writes an error envelope. Only
// structured errors expose their message; anything else becomes a 500.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := apperrors.ErrCodeInternal
	var details map[string]interface{}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatusCode()
		code = appErr.Code
		details = appErr.Details
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, Response{
		Success:   false,
		Message:   apperrors.PublicMessage(err),
		Timestamp: time.Now().UTC(),
		Code:      code,
		Details:   details,
	})
}
