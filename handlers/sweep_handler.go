package handlers

import (
	"context"
	"crypto/hmac"
	"net/http"
	"strings"

	"RedditSchedulerAPI/models"
	"RedditSchedulerAPI/utils"
)

// TriggerScheduledSweep runs the scheduled-post publishing sweep. Guarded by
// the static cron secret; per-record failures are reported in the summary,
// not as a transport-level error.
func (h *Handler) TriggerScheduledSweep(w http.ResponseWriter, r *http.Request) {
	h.runSweep(w, r, h.publisher.RunScheduledSweep)
}

// TriggerRecoverySweep retries posts left in failed state.
func (h *Handler) TriggerRecoverySweep(w http.ResponseWriter, r *http.Request) {
	h.runSweep(w, r, h.publisher.RunRecoverySweep)
}

// TriggerMetricsSweep refreshes engagement counters for published posts.
func (h *Handler) TriggerMetricsSweep(w http.ResponseWriter, r *http.Request) {
	h.runSweep(w, r, h.metrics.RunMetricsSweep)
}

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request, sweep func(context.Context) (*models.SweepSummary, error)) {
	if !h.cronSecretValid(r) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid cron secret")
		return
	}

	summary, err := sweep(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) cronSecretValid(r *http.Request) bool {
	if h.cfg.CronSecret == "" {
		return false
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return false
	}

	return hmac.Equal([]byte(parts[1]), []byte(h.cfg.CronSecret))
}
