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

package v1alpha1

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// Phase is a coarse summary of how far a WireguardConfig has converged.
type Phase string

// Phases of the per-config state machine, in order.
const (
	PhaseEmpty           Phase = "Empty"
	PhaseAddressAssigned Phase = "AddressAssigned"
	PhaseKeyAssigned     Phase = "KeyAssigned"
	PhasePeersResolved   Phase = "PeersResolved"
	PhaseReady           Phase = "Ready"
)

// String returns "namespace/name".
func (r ObjectReference) String() string {
	return fmt.Sprintf("%s/%s", r.Namespace, r.Name)
}

// WithDefaultNamespace returns a copy of the reference whose empty namespace
// is replaced by ns.
func (r ObjectReference) WithDefaultNamespace(ns string) ObjectReference {
	if r.Namespace == "" {
		r.Namespace = ns
	}
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	return r
}

// ConsumerKey is the key under which the config's pool allocation is recorded.
func (c *WireguardConfig) ConsumerKey() string {
	return ObjectReference{Name: c.Name, Namespace: c.Namespace}.String()
}

// Reference returns a reference to the config itself.
func (c *WireguardConfig) Reference() ObjectReference {
	return ObjectReference{Name: c.Name, Namespace: c.Namespace}
}

// Validate checks that exactly one address source is set.
func (a *WireguardAddress) Validate() error {
	switch {
	case a.Network != nil && a.Pool != nil:
		return errors.New("address must set either network or pool, not both")
	case a.Network == nil && a.Pool == nil:
		return errors.New("address must set network or pool")
	case a.Network != nil:
		ip := net.ParseIP(a.Network.Address)
		if ip == nil || ip.To4() == nil {
			return errors.Errorf("invalid IPv4 address %q", a.Network.Address)
		}
		if a.Network.Prefix < 0 || a.Network.Prefix > 32 {
			return errors.Errorf("invalid prefix length %d", a.Network.Prefix)
		}
	case a.Pool.Name == "":
		return errors.New("pool reference without name")
	}
	return nil
}

// Validate checks that exactly one peer source is set.
func (p *WireguardPeer) Validate() error {
	switch {
	case p.Config != nil && p.Ref != nil:
		return errors.New("peer must set either config or ref, not both")
	case p.Config == nil && p.Ref == nil:
		return errors.New("peer must set config or ref")
	case p.Ref != nil && p.Ref.Name == "":
		return errors.New("peer reference without name")
	}
	return nil
}

// Endpoint renders the peer endpoint as "address:port".
func (p *PeerConfig) Endpoint() string {
	var port int32
	if p.EndpointPort != nil {
		port = *p.EndpointPort
	}
	return net.JoinHostPort(p.EndpointAddress, strconv.Itoa(int(port)))
}

// HasInterfacePrerequisites reports whether every field the interface
// needs is present in the status.
func (s *WireguardConfigStatus) HasInterfacePrerequisites() bool {
	return s.PodAddress != "" &&
		s.TunnelAddress != "" &&
		s.TunnelAddressPrefix != nil &&
		s.PrivateKey != nil &&
		s.PublicKey != ""
}

// ReadyForProvisioning reports whether the CNI side may build the interface:
// the config is ready, the status carries everything the interface needs and
// every requested peer is resolved.
func (c *WireguardConfig) ReadyForProvisioning() bool {
	if !c.Status.InterfaceReady || !c.Status.HasInterfacePrerequisites() {
		return false
	}
	return len(c.Status.Peers) >= len(c.Spec.Peers)
}

// Phase summarises the status.
func (c *WireguardConfig) Phase() Phase {
	s := &c.Status
	switch {
	case s.InterfaceReady:
		return PhaseReady
	case len(s.Peers) > 0 && s.PrivateKey != nil:
		return PhasePeersResolved
	case s.PrivateKey != nil:
		return PhaseKeyAssigned
	case s.TunnelAddress != "":
		return PhaseAddressAssigned
	default:
		return PhaseEmpty
	}
}

// Int32 returns a pointer to v.
func Int32(v int32) *int32 {
	return &v
}
