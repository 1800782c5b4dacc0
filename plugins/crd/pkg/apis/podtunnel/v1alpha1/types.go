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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel"
)

// CRD Constants
const (
	CRDGroup                        string = podtunnel.GroupName
	CRDGroupVersion                 string = "v1alpha1"
	CRDWireguardConfigPlural        string = "wireguardconfigs"
	CRDFullWireguardConfigName      string = CRDWireguardConfigPlural + "." + CRDGroup
	CRDWireguardAddressPoolPlural   string = "wireguardaddresspools"
	CRDFullWireguardAddressPoolName string = CRDWireguardAddressPoolPlural + "." + CRDGroup

	WireguardConfigKind      = "WireguardConfig"
	WireguardAddressPoolKind = "WireguardAddressPool"
)

// Defaults applied when the corresponding field is left empty.
const (
	DefaultNetwork             = "10.0.100.0/24"
	DefaultListenPort          = 51820
	DefaultPersistentKeepalive = 25
	DefaultNamespace           = "default"
)

// WireguardAddressPool is a CIDR block handing out tunnel addresses to
// WireguardConfigs that reference it.
// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type WireguardAddressPool struct {
	// TypeMeta is the metadata for the resource, like kind and apiversion
	metav1.TypeMeta `json:",inline"`
	// ObjectMeta contains the metadata for the particular object
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   WireguardAddressPoolSpec   `json:"spec,omitempty"`
	Status WireguardAddressPoolStatus `json:"status,omitempty"`
}

// WireguardAddressPoolSpec is the spec for the address pool resource.
type WireguardAddressPoolSpec struct {
	Network string `json:"network,omitempty"` // IPv4 CIDR, DefaultNetwork when empty
}

// CIDR returns the pool network with the default applied.
func (s WireguardAddressPoolSpec) CIDR() string {
	if s.Network == "" {
		return DefaultNetwork
	}
	return s.Network
}

// WireguardAddressPoolStatus is the allocation ledger of the pool.
type WireguardAddressPoolStatus struct {
	// Allocation maps a consumer key ("namespace/name") to its IPv4 address.
	// Entries are never removed.
	Allocation map[string]string `json:"allocation,omitempty"`
}

// WireguardAddressPoolList is a list of address pool resources
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type WireguardAddressPoolList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata"`

	Items []WireguardAddressPool `json:"items"`
}

// WireguardConfig is the desired and observed state of one pod's WireGuard interface.
// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type WireguardConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   WireguardConfigSpec   `json:"spec,omitempty"`
	Status WireguardConfigStatus `json:"status,omitempty"`
}

// WireguardConfigSpec is the spec for the tunnel configuration resource.
type WireguardConfigSpec struct {
	Interface WireguardInterface `json:"interface,omitempty"`
	Peers     []WireguardPeer    `json:"peers,omitempty"`
}

// WireguardInterface describes the local end of the tunnel.
type WireguardInterface struct {
	Address    *WireguardAddress `json:"address,omitempty"`
	DNS        []string          `json:"dns,omitempty"`
	ListenPort *int32            `json:"listenPort,omitempty"`
	PrivateKey *ObjectReference  `json:"privateKey,omitempty"` // existing key secret, generated when empty
}

// Port returns the listen port with the default applied.
func (i WireguardInterface) Port() int32 {
	if i.ListenPort == nil {
		return DefaultListenPort
	}
	return *i.ListenPort
}

// WireguardAddress selects where the tunnel address comes from.
// Exactly one of the fields is set.
type WireguardAddress struct {
	Network *WireguardNetwork `json:"network,omitempty"` // explicit address
	Pool    *ObjectReference  `json:"pool,omitempty"`    // WireguardAddressPool reference
}

// WireguardNetwork is an explicitly configured tunnel address.
type WireguardNetwork struct {
	Address string `json:"address"`
	Prefix  int32  `json:"prefix"`
}

// WireguardPeer is either an inline peer configuration or a reference
// to another WireguardConfig. Exactly one of the fields is set.
type WireguardPeer struct {
	Config *PeerConfig      `json:"config,omitempty"`
	Ref    *ObjectReference `json:"ref,omitempty"`
}

// PeerConfig is a fully resolved WireGuard peer.
type PeerConfig struct {
	PublicKey           string   `json:"publicKey"`
	EndpointAddress     string   `json:"endpointAddress"`
	EndpointPort        *int32   `json:"endpointPort,omitempty"`
	TunnelAddress       string   `json:"tunnelAddress,omitempty"`
	TunnelAddressPrefix *int32   `json:"tunnelAddressPrefix,omitempty"`
	AllowedIPs          []string `json:"allowedIPs,omitempty"`
	PersistentKeepalive *int32   `json:"persistentKeepalive,omitempty"`
}

// WireguardConfigStatus is the converging state advanced by the reconcilers.
type WireguardConfigStatus struct {
	InterfaceReady      bool             `json:"interfaceReady,omitempty"`
	Peers               []PeerConfig     `json:"peers,omitempty"`
	PodAddress          string           `json:"podAddress,omitempty"`
	TunnelAddress       string           `json:"tunnelAddress,omitempty"`
	TunnelAddressPrefix *int32           `json:"tunnelAddressPrefix,omitempty"`
	PrivateKey          *ObjectReference `json:"privateKey,omitempty"`
	PublicKey           string           `json:"publicKey,omitempty"`
}

// WireguardConfigList is a list of tunnel configuration resources
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type WireguardConfigList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata"`

	Items []WireguardConfig `json:"items"`
}

// ObjectReference points to a namespaced object.
type ObjectReference struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}
