// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package api

import (
	"net/http"
	"time"

	"github.com/reelrank/reelrank/internal/models"
)

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Model    string `json:"model,omitempty"`
}

// HealthLive handles GET /api/v1/health/live. Always succeeds while the
// process is running; used by container liveness probes.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, healthStatus{Status: "alive"}, time.Now(), false)
}

// HealthReady handles GET /api/v1/health/ready. Checks the database and,
// when enabled, the model service. A degraded model does not fail
// readiness: the engine serves content-based results without it.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := healthStatus{Status: "ready", Database: "up"}
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		status.Status = "unavailable"
		status.Database = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.modelHealthy != nil {
		if h.modelHealthy(r.Context()) {
			status.Model = "up"
		} else {
			status.Model = "down"
		}
	}

	envelope := "success"
	if httpStatus != http.StatusOK {
		envelope = "error"
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: envelope,
		Data:   status,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}
