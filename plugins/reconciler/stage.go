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

package reconciler

import (
	"context"

	"github.com/pkg/errors"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

// ErrPeerNotReady is returned by the peer stage while a referenced peer
// config has not finished its own reconciliation.
var ErrPeerNotReady = errors.New("peer not ready")

// Result tells the controller what to do with the config once a stage
// returns without error.
type Result struct {
	// Requeue asks for another run after the retry interval even though
	// nothing failed.
	Requeue bool
}

// Stage is one step of the per-config reconciliation pipeline. Each stage
// owns a disjoint set of status fields and is safe to re-run: a stage that
// finds its fields already populated returns without writing.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Reconcile moves the config one step closer to being ready.
	Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (Result, error)
}

// Stage names.
const (
	AddressStageName = "address"
	KeyStageName     = "key"
	PeerStageName    = "peer"
	GateStageName    = "interface"
)
