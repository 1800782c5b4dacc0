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

package provisioner

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

const (
	// InterfaceName is the name of the tunnel interface inside the pod.
	InterfaceName = "wg0"

	// FirewallMark marks the encrypted packets leaving the tunnel.
	FirewallMark = 921481285

	// RoutingTable holds the default route through the tunnel.
	RoutingTable = 129518285

	// MainTable is the kernel's main routing table.
	MainTable = unix.RT_TABLE_MAIN
)

// Rule is a policy routing rule.
type Rule struct {
	// Dst selects packets by destination, nil matches all.
	Dst *net.IPNet
	// Mark is matched only when MatchMark is set; this lets fwmark 0
	// be matched explicitly.
	Mark      uint32
	MatchMark bool
	Table     int
	Priority  int
	// SuppressPrefixlen is -1 when unset.
	SuppressPrefixlen int
}

// Dataplane configures the kernel side of the tunnel, one method per
// step of the interface workflow. All calls act on the network namespace
// the dataplane was created in.
type Dataplane interface {
	AddLink(name string) error
	AddAddress(name string, addr *net.IPNet) error
	SetPrivateKey(name string, key wgtypes.Key) error
	SetListenPort(name string, port int) error
	SetLinkUp(name string) error
	SetFirewallMark(name string, mark uint32) error
	AddDefaultRoute(name string, table int) error
	SetPeer(name string, peer wgtypes.PeerConfig) error
	AddRule(rule Rule) error

	// Close releases the handles of the dataplane.
	Close() error
}

// InterfaceConfig is everything needed to build the tunnel interface.
type InterfaceConfig struct {
	Address    *net.IPNet
	PrivateKey wgtypes.Key
	ListenPort int
	Peers      []v1alpha1.PeerConfig
}

// ConfigureInterface runs the interface workflow. The first failing step
// aborts the rest; steps already applied are not rolled back.
func ConfigureInterface(dp Dataplane, iface InterfaceConfig) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"add link", func() error { return dp.AddLink(InterfaceName) }},
		{"add address", func() error { return dp.AddAddress(InterfaceName, iface.Address) }},
		{"set private key", func() error { return dp.SetPrivateKey(InterfaceName, iface.PrivateKey) }},
		{"set listen port", func() error { return dp.SetListenPort(InterfaceName, iface.ListenPort) }},
		{"set link up", func() error { return dp.SetLinkUp(InterfaceName) }},
		{"set fwmark", func() error { return dp.SetFirewallMark(InterfaceName, FirewallMark) }},
		{"add default route", func() error { return dp.AddDefaultRoute(InterfaceName, RoutingTable) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return errors.Wrap(err, step.name)
		}
	}

	for i := range iface.Peers {
		peer := &iface.Peers[i]
		wgPeer, endpoint, err := PeerToWireguard(peer)
		if err != nil {
			return err
		}
		if err := dp.SetPeer(InterfaceName, wgPeer); err != nil {
			return errors.Wrapf(err, "set peer %s", peer.PublicKey)
		}

		// the encrypted traffic to the peer leaves through the pod's
		// original default route, everything else to it enters the tunnel
		dst := &net.IPNet{IP: endpoint.IP, Mask: net.CIDRMask(32, 32)}
		for _, rule := range []Rule{
			{Dst: dst, Mark: FirewallMark, MatchMark: true, Table: MainTable, Priority: 1, SuppressPrefixlen: -1},
			{Dst: dst, Mark: 0, MatchMark: true, Table: RoutingTable, Priority: 2, SuppressPrefixlen: -1},
		} {
			if err := dp.AddRule(rule); err != nil {
				return errors.Wrapf(err, "add rule for peer %s", endpoint.IP)
			}
		}
	}

	err := dp.AddRule(Rule{Table: MainTable, Priority: 3, SuppressPrefixlen: 0})
	return errors.Wrap(err, "add suppress rule")
}

// PeerToWireguard converts a resolved peer into a wgctrl peer and its
// endpoint.
func PeerToWireguard(peer *v1alpha1.PeerConfig) (wgtypes.PeerConfig, *net.UDPAddr, error) {
	publicKey, err := wgtypes.ParseKey(peer.PublicKey)
	if err != nil {
		return wgtypes.PeerConfig{}, nil, errors.Wrapf(err, "peer public key %q", peer.PublicKey)
	}
	ip := net.ParseIP(peer.EndpointAddress).To4()
	if ip == nil {
		return wgtypes.PeerConfig{}, nil, errors.Errorf("peer %s: invalid endpoint address %q",
			peer.PublicKey, peer.EndpointAddress)
	}
	port := v1alpha1.DefaultListenPort
	if peer.EndpointPort != nil {
		port = int(*peer.EndpointPort)
	}
	endpoint := &net.UDPAddr{IP: ip, Port: port}

	allowed := make([]net.IPNet, 0, len(peer.AllowedIPs))
	for _, cidr := range peer.AllowedIPs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return wgtypes.PeerConfig{}, nil, errors.Wrapf(err, "peer %s allowed IPs", peer.PublicKey)
		}
		allowed = append(allowed, *ipNet)
	}

	wgPeer := wgtypes.PeerConfig{
		PublicKey:         publicKey,
		Endpoint:          endpoint,
		ReplaceAllowedIPs: true,
		AllowedIPs:        allowed,
	}
	if peer.PersistentKeepalive != nil {
		keepalive := time.Duration(*peer.PersistentKeepalive) * time.Second
		wgPeer.PersistentKeepaliveInterval = &keepalive
	}
	return wgPeer, endpoint, nil
}

// tableName renders a routing table the way iproute2 does.
func tableName(table int) string {
	if table == MainTable {
		return "main"
	}
	return strconv.Itoa(table)
}

func joinIPNets(nets []net.IPNet) string {
	parts := make([]string, 0, len(nets))
	for i := range nets {
		parts = append(parts, nets[i].String())
	}
	return strings.Join(parts, ",")
}
