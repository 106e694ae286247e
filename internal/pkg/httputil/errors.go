package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError maps a domain error to an HTTP response using provided
// mappings. Unmapped errors are not exposed to clients: they are logged with
// the request-scoped logger and answered with a generic 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	if status, msg, ok := statusFor(err, mappings); ok {
		Error(w, status, msg)
		return
	}
	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

func statusFor(err error, mappings []ErrorMapping) (int, string, bool) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		return m.Status, msg, true
	}
	return 0, "", false
}
