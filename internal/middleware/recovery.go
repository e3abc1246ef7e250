package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/revenue-ledger/internal/handler"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
)

// Recovery turns a handler panic into a 500 envelope. It sits outside Tracing,
// so the request id is read back from the response header Tracing set.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.FromContext(r.Context()).Error("panic recovered",
					"request_id", w.Header().Get(traceIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
