// Copyright (C) 2026 konnekt
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes Prometheus counters and gauges for the
// controller's session loop on a private registry — never the global
// default registry, so multiple Sessions in one process (as in tests)
// never collide registering the same metric twice.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "konnekt_session"

// Registry is this module's private Prometheus registry.
var Registry = prometheus.NewRegistry()

// NewCollector builds a fresh set of metrics bound to its own private
// registry, so each Session (including ones created in the same test
// binary) can expose independent counters instead of fighting over a
// package-level singleton.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		EnvelopesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelopes",
			Name:      "sent_total",
			Help:      "Envelopes sent, by transport method.",
		}, []string{"method"}),
		EnvelopesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelopes",
			Name:      "received_total",
			Help:      "Envelopes received, by ordering outcome.",
		}, []string{"outcome"}),
		CommandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "handled_total",
			Help:      "Commands handled, by result.",
		}, []string{"command", "result"}),
		ParticipantsOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lobby",
			Name:      "participants_online",
			Help:      "Participants currently Online in the lobby.",
		}),
		ElectionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authority",
			Name:      "elections_started_total",
			Help:      "Host delegation elections started.",
		}),
		ActivitiesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "completed_total",
			Help:      "Activities that reached Completed.",
		}),
	}
	reg.MustRegister(c.EnvelopesSent, c.EnvelopesReceived, c.CommandsHandled,
		c.ParticipantsOnline, c.ElectionsStarted, c.ActivitiesCompleted)
	return c
}

// Collector bundles every metric the controller updates.
type Collector struct {
	registry *prometheus.Registry

	EnvelopesSent       *prometheus.CounterVec
	EnvelopesReceived   *prometheus.CounterVec
	CommandsHandled     *prometheus.CounterVec
	ParticipantsOnline  prometheus.Gauge
	ElectionsStarted    prometheus.Counter
	ActivitiesCompleted prometheus.Counter
}

// Registry returns this collector's private Prometheus registry, for
// wiring into an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
