package http

import (
	"context"
	"net/http"

	"github.com/copperkettle/tasklist/internal/tasks/observability"
	"github.com/copperkettle/tasklist/pkg/httpx"
	"github.com/copperkettle/tasklist/pkg/slogx"
)

// Error codes from the service's error taxonomy as they appear on the wire.
const (
	codeValidationError     = "ValidationError"
	codeEmailAlreadyUsed    = "EmailAlreadyUsed"
	codeInvalidCredentials  = "InvalidCredentials"
	codeUnauthorized        = "Unauthorized"
	codeMissingRefreshToken = "MissingRefreshToken"
	codeInvalidRefreshToken = "InvalidRefreshToken"
	codeInvalidOrExpired    = "InvalidOrExpiredRefresh"
	codeRefreshRevoked      = "RefreshRevokedOrExpired"
	codeInvalidID           = "InvalidId"
	codeNotFound            = "NotFound"
	codeInternalError       = "InternalError"
)

func writeError(w http.ResponseWriter, status int, code string) {
	httpx.WriteJSON(w, status, map[string]string{"error": code})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   codeValidationError,
		"details": details,
	})
}

// writeInternalError logs the real cause server-side and withholds it from
// the client.
func writeInternalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	slogx.FromContext(ctx).Error(msg, "err", err)
	observability.CaptureError(err)
	writeError(w, http.StatusInternalServerError, codeInternalError)
}
