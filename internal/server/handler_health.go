package server

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// Version is reported by /healthz.
const Version = "0.3.0"

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	GoVersion     string `json:"go_version"`
	Uptime        string `json:"uptime"`
	Storage       string `json:"storage"`
	ActiveClients int    `json:"active_clients"`
}

// healthProbeClient is a reserved client id used to check storage.
const healthProbeClient = "_healthz"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, _, err := s.store.Client(healthProbeClient).Get(ctx, "probe"); err != nil {
		s.logger.Error("storage health check failed", "error", err)
		respondError(w, reqID, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	respondOK(w, reqID, healthResponse{
		Status:        "healthy",
		Version:       Version,
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Storage:       s.config.Storage,
		ActiveClients: s.apps.Len(),
	})
}
