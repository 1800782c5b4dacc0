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
	"net"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/ipam"
)

// AddressStage assigns the tunnel address, either the one given in the spec
// or one allocated from the referenced pool.
type AddressStage struct {
	AddressDeps
}

// AddressDeps lists dependencies of the AddressStage.
type AddressDeps struct {
	Log       logging.Logger
	Store     store.Store
	Allocator ipam.API
}

// NewAddressStage creates a new AddressStage.
func NewAddressStage(deps AddressDeps) *AddressStage {
	return &AddressStage{AddressDeps: deps}
}

// Name implements Stage.
func (s *AddressStage) Name() string {
	return AddressStageName
}

// Reconcile implements Stage.
func (s *AddressStage) Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (Result, error) {
	if cfg.Status.TunnelAddress != "" {
		return Result{}, nil
	}
	addr := cfg.Spec.Interface.Address
	if addr == nil {
		// no address requested, nothing to do until the spec changes
		return Result{}, nil
	}
	if err := addr.Validate(); err != nil {
		return Result{}, errors.Wrapf(err, "config %s", cfg.Reference())
	}

	var (
		ip     net.IP
		prefix int
	)
	switch {
	case addr.Network != nil:
		ip = net.ParseIP(addr.Network.Address).To4()
		prefix = int(addr.Network.Prefix)
	case addr.Pool != nil:
		poolRef := addr.Pool.WithDefaultNamespace(cfg.Namespace)
		var err error
		ip, prefix, err = s.Allocator.AllocateFromPool(ctx, poolRef, cfg.ConsumerKey())
		if err != nil {
			return Result{}, err
		}
	}

	_, err := s.Store.PatchConfigStatus(ctx, cfg.Namespace, cfg.Name, store.StatusPatch{
		"tunnelAddress":       ip.String(),
		"tunnelAddressPrefix": prefix,
	})
	if err != nil {
		return Result{}, err
	}
	s.Log.WithField("config", cfg.Reference().String()).
		Infof("Tunnel address set to %s/%d", ip, prefix)
	return Result{}, nil
}
