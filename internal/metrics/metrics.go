// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics instruments query and transaction lifecycles. The
// collectors are package-level and always updated; registering them with
// prometheus (and exposing a scrape endpoint) is the embedding application's
// responsibility, via Init. One-shot processes like curioctl never register.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var METRICS_NAMESPACE = "curio"
var METRICS_SUBSYSTEM = "client"

var queriesCounter = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: METRICS_NAMESPACE,
	Name:      "queries_total",
	Subsystem: METRICS_SUBSYSTEM,
})

var transactionsSubmittedCounter = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: METRICS_NAMESPACE,
	Name:      "transactions_submitted_total",
	Subsystem: METRICS_SUBSYSTEM,
})

var transactionsConfirmedCounter = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: METRICS_NAMESPACE,
	Name:      "transactions_confirmed_total",
	Subsystem: METRICS_SUBSYSTEM,
})

var transactionsFailedCounter = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: METRICS_NAMESPACE,
	Name:      "transactions_failed_total",
	Subsystem: METRICS_SUBSYSTEM,
})

var operationDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: METRICS_NAMESPACE,
	Subsystem: METRICS_SUBSYSTEM,
	Name:      "operation_duration_seconds",
	Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
}, []string{"operation"})

// Init registers the collectors with the default prometheus registry. Call
// once at startup from a process that serves a metrics endpoint.
func Init() {
	prometheus.Register(queriesCounter)
	prometheus.Register(transactionsSubmittedCounter)
	prometheus.Register(transactionsConfirmedCounter)
	prometheus.Register(transactionsFailedCounter)
	prometheus.Register(operationDurationHistogram)
}

func IncQueries() {
	queriesCounter.Inc()
}

func IncTransactionsSubmitted() {
	transactionsSubmittedCounter.Inc()
}

func IncTransactionsConfirmed() {
	transactionsConfirmedCounter.Inc()
}

func IncTransactionsFailed() {
	transactionsFailedCounter.Inc()
}

func ObserveOperation(operation string, startTime time.Time) {
	hist, err := operationDurationHistogram.GetMetricWith(prometheus.Labels{
		"operation": operation,
	})
	if err == nil {
		hist.Observe(time.Since(startTime).Seconds())
	}
}
