// Package httpserver wraps http.Server with the timeouts we want everywhere.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an http.Server with sane timeouts. Write timeout stays generous
// because model backends can take tens of seconds to answer.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
