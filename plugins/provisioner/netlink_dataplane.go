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

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// netlinkDataplane programs the kernel over netlink sockets. It must be
// created inside the target network namespace.
type netlinkDataplane struct {
	wg *wgctrl.Client
}

// NewNetlinkDataplane opens the netlink and wireguard control sockets in
// the current network namespace.
func NewNetlinkDataplane() (Dataplane, error) {
	wg, err := wgctrl.New()
	if err != nil {
		return nil, errors.Wrap(err, "open wireguard control socket")
	}
	return &netlinkDataplane{wg: wg}, nil
}

func (d *netlinkDataplane) link(name string) (netlink.Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, errors.Wrapf(err, "link %s", name)
	}
	return link, nil
}

func (d *netlinkDataplane) AddLink(name string) error {
	return netlink.LinkAdd(&netlink.Wireguard{LinkAttrs: netlink.LinkAttrs{Name: name}})
}

func (d *netlinkDataplane) AddAddress(name string, addr *net.IPNet) error {
	link, err := d.link(name)
	if err != nil {
		return err
	}
	return netlink.AddrAdd(link, &netlink.Addr{IPNet: addr})
}

func (d *netlinkDataplane) SetPrivateKey(name string, key wgtypes.Key) error {
	return d.wg.ConfigureDevice(name, wgtypes.Config{PrivateKey: &key})
}

func (d *netlinkDataplane) SetListenPort(name string, port int) error {
	return d.wg.ConfigureDevice(name, wgtypes.Config{ListenPort: &port})
}

func (d *netlinkDataplane) SetLinkUp(name string) error {
	link, err := d.link(name)
	if err != nil {
		return err
	}
	return netlink.LinkSetUp(link)
}

func (d *netlinkDataplane) SetFirewallMark(name string, mark uint32) error {
	fwmark := int(mark)
	return d.wg.ConfigureDevice(name, wgtypes.Config{FirewallMark: &fwmark})
}

func (d *netlinkDataplane) AddDefaultRoute(name string, table int) error {
	link, err := d.link(name)
	if err != nil {
		return err
	}
	return netlink.RouteAdd(&netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       &net.IPNet{IP: net.IPv4zero, Mask: net.CIDRMask(0, 32)},
		Scope:     netlink.SCOPE_LINK,
		Table:     table,
	})
}

func (d *netlinkDataplane) SetPeer(name string, peer wgtypes.PeerConfig) error {
	return d.wg.ConfigureDevice(name, wgtypes.Config{Peers: []wgtypes.PeerConfig{peer}})
}

func (d *netlinkDataplane) AddRule(rule Rule) error {
	return netlink.RuleAdd(netlinkRule(rule))
}

func (d *netlinkDataplane) Close() error {
	return d.wg.Close()
}

func netlinkRule(rule Rule) *netlink.Rule {
	nlRule := netlink.NewRule()
	nlRule.Family = netlink.FAMILY_V4
	nlRule.Dst = rule.Dst
	nlRule.Table = rule.Table
	nlRule.Priority = rule.Priority
	nlRule.SuppressPrefixlen = rule.SuppressPrefixlen
	if rule.MatchMark {
		// a full mask makes the kernel match fwmark 0 as well
		mask := uint32(0xFFFFFFFF)
		nlRule.Mark = rule.Mark
		nlRule.Mask = &mask
	}
	return nlRule
}
