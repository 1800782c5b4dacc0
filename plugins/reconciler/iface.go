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

	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
)

// InterfaceGate flags the config as interfaceReady once address, keys and
// the pod address are all in place.
type InterfaceGate struct {
	GateDeps
}

// GateDeps lists dependencies of the InterfaceGate.
type GateDeps struct {
	Log   logging.Logger
	Store store.Store
}

// NewInterfaceGate creates a new InterfaceGate.
func NewInterfaceGate(deps GateDeps) *InterfaceGate {
	return &InterfaceGate{GateDeps: deps}
}

// Name implements Stage.
func (g *InterfaceGate) Name() string {
	return GateStageName
}

// Reconcile implements Stage. The decision is taken on a fresh read since
// the other stages may have written since the event was queued.
func (g *InterfaceGate) Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (Result, error) {
	if cfg.Status.InterfaceReady {
		return Result{}, nil
	}

	current, err := g.Store.GetConfig(ctx, cfg.Namespace, cfg.Name)
	if store.IsNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if current.Status.InterfaceReady {
		return Result{}, nil
	}
	if !current.Status.HasInterfacePrerequisites() {
		g.Log.Debugf("Config %s not ready yet (phase %s)", current.Reference(), current.Phase())
		return Result{Requeue: true}, nil
	}

	_, err = g.Store.PatchConfigStatus(ctx, cfg.Namespace, cfg.Name, store.StatusPatch{
		"interfaceReady": true,
	})
	if err != nil {
		return Result{}, err
	}
	g.Log.WithField("config", current.Reference().String()).Info("Interface ready")
	return Result{}, nil
}
