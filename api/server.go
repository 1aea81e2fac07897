package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// NewServer wraps handler in an http.Server with the API's timeouts.
func NewServer(cfg *config.Config, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Checkout.SubmitTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
