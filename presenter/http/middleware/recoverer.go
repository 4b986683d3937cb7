package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/prisma-monitor/indexer/logging"
)

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger := logging.LoggerFromContext(r.Context())
				if err2, ok := err.(error); ok {
					logger = logger.WithError(err2)
				} else {
					logger = logger.WithField("recovered", err)
				}
				logger.WithField("stack", string(debug.Stack())).Error("recovered error from the http handler")
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
