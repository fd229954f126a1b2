package httpapi

import (
	"errors"
	"net/http"

	"memberhub/internal/domain"
)

// Result is the JSON envelope every API route answers with.
// - code: 2000 on success, -1 on failure
// - type: "success" | "error"
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired is sent with HTTP 401 when the session is missing or expired.
	ResultTokenExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func Unauthorized(message string) Result[any] {
	return Result[any]{Code: ResultTokenExpired, Type: "error", Message: message, Result: nil}
}

// writeError answers a failed call. Session problems become 401/60401;
// everything else is an inline -1 result.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, Unauthorized(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Fail(err.Error()))
}
