package apiserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gamebrain/shoplens/internal/config"
	"github.com/gamebrain/shoplens/internal/table"
	"github.com/gamebrain/shoplens/pkg/insight"
)

// NewServer creates a new HTTP server for the REST API.
func NewServer(cfg *config.Config, provider *table.Provider, gate *insight.Gate) *http.Server {
	router := NewRouter(cfg, provider, gate)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
