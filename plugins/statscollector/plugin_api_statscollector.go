// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statscollector

// Outcome of a single stage run as reported to RecordReconcile.
type Outcome string

// Reconcile outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeRequeue Outcome = "requeue"
	OutcomeError   Outcome = "error"
)

// API defines methods provided by the StatsCollector for use by the
// stage controllers.
type API interface {
	// RecordReconcile counts one run of the named stage.
	RecordReconcile(stage string, outcome Outcome)
}
