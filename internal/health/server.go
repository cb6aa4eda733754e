// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package health

import (
	"encoding/json"
	"net/http"
)

// Handler returns an http.Handler serving /healthz: 200 with the full
// per-check JSON breakdown when OverallStatus is healthy, 503
// otherwise. Intended for a non-browser deployment's load balancer or
// orchestrator, not for the browser UI this module otherwise targets.
func Handler(checker *Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := checker.CheckAll(r.Context())
		status := checker.OverallStatus(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(struct {
			Status Status                  `json:"status"`
			Checks map[string]*CheckResult `json:"checks"`
		}{Status: status, Checks: results})
	})
}
