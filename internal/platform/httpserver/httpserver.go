// Package httpserver constructs the process's http.Server. Timeouts are set
// here, in one place, rather than sprinkled across main.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server for the benefit API. Per-request deadlines come from
// the timeout middleware; these bounds only guard against slow or stalled
// clients holding connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
