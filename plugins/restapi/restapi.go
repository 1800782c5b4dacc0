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

package restapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/ipam"
)

const (
	// RESTPrefix is versioned prefix for REST urls.
	RESTPrefix = "/podtunnel/v1/"

	// RestURLPools lists address pools with their utilisation.
	RestURLPools = RESTPrefix + "pools"

	// RestURLTunnels lists tunnel configs, RestURLTunnel reads a single one.
	RestURLTunnels = RESTPrefix + "tunnels"
	RestURLTunnel  = RestURLTunnels + "/{namespace}/{name}"

	// RestURLMetrics exposes prometheus metrics.
	RestURLMetrics = "/metrics"
)

// PoolInfo represents the allocation state of an address pool.
type PoolInfo struct {
	Pool       string            `json:"pool"`
	Network    string            `json:"network"`
	Usable     uint64            `json:"usable"`
	Allocated  int               `json:"allocated"`
	Allocation map[string]string `json:"allocation,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// TunnelInfo represents how far a tunnel config has converged.
type TunnelInfo struct {
	Config         string                `json:"config"`
	Phase          v1alpha1.Phase        `json:"phase"`
	PodAddress     string                `json:"podAddress,omitempty"`
	TunnelAddress  string                `json:"tunnelAddress,omitempty"`
	PublicKey      string                `json:"publicKey,omitempty"`
	ListenPort     int32                 `json:"listenPort"`
	RequestedPeers int                   `json:"requestedPeers"`
	Peers          []v1alpha1.PeerConfig `json:"peers,omitempty"`
	InterfaceReady bool                  `json:"interfaceReady"`
	Provisionable  bool                  `json:"provisionable"`
}

// NewPoolInfo summarises a pool. An invalid network is reported in Error.
func NewPoolInfo(pool *v1alpha1.WireguardAddressPool) PoolInfo {
	info := PoolInfo{
		Pool:       v1alpha1.ObjectReference{Name: pool.Name, Namespace: pool.Namespace}.String(),
		Network:    pool.Spec.CIDR(),
		Allocated:  len(pool.Status.Allocation),
		Allocation: pool.Status.Allocation,
	}
	usable, err := ipam.Usable(pool)
	if err != nil {
		info.Error = err.Error()
	}
	info.Usable = usable
	return info
}

// NewTunnelInfo summarises a tunnel config. Key material other than the
// public key is left out.
func NewTunnelInfo(cfg *v1alpha1.WireguardConfig) TunnelInfo {
	status := &cfg.Status
	info := TunnelInfo{
		Config:         cfg.Reference().String(),
		Phase:          cfg.Phase(),
		PodAddress:     status.PodAddress,
		PublicKey:      status.PublicKey,
		ListenPort:     cfg.Spec.Interface.Port(),
		RequestedPeers: len(cfg.Spec.Peers),
		Peers:          status.Peers,
		InterfaceReady: status.InterfaceReady,
		Provisionable:  cfg.ReadyForProvisioning(),
	}
	if status.TunnelAddress != "" && status.TunnelAddressPrefix != nil {
		info.TunnelAddress = fmt.Sprintf("%s/%d", status.TunnelAddress, *status.TunnelAddressPrefix)
	}
	return info
}

// ListPoolInfo summarises the pools of namespace, all namespaces when empty.
func ListPoolInfo(ctx context.Context, s store.Store, namespace string) ([]PoolInfo, error) {
	pools, err := s.ListPools(ctx, namespace)
	if err != nil {
		return nil, err
	}
	infos := make([]PoolInfo, 0, len(pools))
	for i := range pools {
		infos = append(infos, NewPoolInfo(&pools[i]))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Pool < infos[j].Pool })
	return infos, nil
}

// ListTunnelInfo summarises the configs of namespace, all namespaces when empty.
func ListTunnelInfo(ctx context.Context, s store.Store, namespace string) ([]TunnelInfo, error) {
	configs, err := s.ListConfigs(ctx, namespace)
	if err != nil {
		return nil, err
	}
	infos := make([]TunnelInfo, 0, len(configs))
	for i := range configs {
		infos = append(infos, NewTunnelInfo(&configs[i]))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Config < infos[j].Config })
	return infos, nil
}
