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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getMetricVal(t *testing.T, collector prometheus.Collector) float64 {
	collectorChannel := make(chan prometheus.Metric, 1)
	collector.Collect(collectorChannel)
	metric := dto.Metric{}
	err := (<-collectorChannel).Write(&metric)
	require.NoError(t, err)
	if metric.Counter != nil {
		return *metric.Counter.Value
	} else if metric.Gauge != nil {
		return *metric.Gauge.Value
	}
	return 0
}

func TestCounters(t *testing.T) {
	Init()
	Init() // second registration is a no-op

	before := getMetricVal(t, queriesCounter)
	IncQueries()
	assert.Equal(t, before+1, getMetricVal(t, queriesCounter))

	before = getMetricVal(t, transactionsSubmittedCounter)
	IncTransactionsSubmitted()
	assert.Equal(t, before+1, getMetricVal(t, transactionsSubmittedCounter))

	before = getMetricVal(t, transactionsConfirmedCounter)
	IncTransactionsConfirmed()
	assert.Equal(t, before+1, getMetricVal(t, transactionsConfirmedCounter))

	before = getMetricVal(t, transactionsFailedCounter)
	IncTransactionsFailed()
	assert.Equal(t, before+1, getMetricVal(t, transactionsFailedCounter))
}

func TestObserveOperation(t *testing.T) {
	Init()

	ObserveOperation("mint", time.Now().Add(-50*time.Millisecond))

	hist, err := operationDurationHistogram.GetMetricWith(prometheus.Labels{"operation": "mint"})
	require.NoError(t, err)
	assert.NotNil(t, hist)
}
