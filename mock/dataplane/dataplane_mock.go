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

package dataplane

import (
	"fmt"
	"net"
	"sync"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/contiv/podtunnel/plugins/provisioner"
)

// Operation names recorded by MockDataplane.
const (
	AddLink         = "AddLink"
	AddAddress      = "AddAddress"
	SetPrivateKey   = "SetPrivateKey"
	SetListenPort   = "SetListenPort"
	SetLinkUp       = "SetLinkUp"
	SetFirewallMark = "SetFirewallMark"
	AddDefaultRoute = "AddDefaultRoute"
	SetPeer         = "SetPeer"
	AddRule         = "AddRule"
)

// MockDataplane records the operations applied to it.
type MockDataplane struct {
	sync.Mutex

	// FailOn makes the named operation return the error.
	FailOn map[string]error

	Ops          []string
	Links        map[string]bool
	Addresses    []*net.IPNet
	PrivateKey   wgtypes.Key
	ListenPort   int
	FirewallMark uint32
	RouteTables  []int
	Peers        []wgtypes.PeerConfig
	Rules        []provisioner.Rule
	Closed       bool
}

var _ provisioner.Dataplane = (*MockDataplane)(nil)

// NewMockDataplane returns an empty dataplane.
func NewMockDataplane() *MockDataplane {
	return &MockDataplane{
		FailOn: make(map[string]error),
		Links:  make(map[string]bool),
	}
}

func (md *MockDataplane) record(op string) error {
	md.Ops = append(md.Ops, op)
	return md.FailOn[op]
}

// AddLink creates a link, failing if it exists.
func (md *MockDataplane) AddLink(name string) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(AddLink); err != nil {
		return err
	}
	if _, exists := md.Links[name]; exists {
		return fmt.Errorf("link %s already exists", name)
	}
	md.Links[name] = false
	return nil
}

// AddAddress records the address.
func (md *MockDataplane) AddAddress(name string, addr *net.IPNet) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(AddAddress); err != nil {
		return err
	}
	md.Addresses = append(md.Addresses, addr)
	return nil
}

// SetPrivateKey records the key.
func (md *MockDataplane) SetPrivateKey(name string, key wgtypes.Key) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(SetPrivateKey); err != nil {
		return err
	}
	md.PrivateKey = key
	return nil
}

// SetListenPort records the port.
func (md *MockDataplane) SetListenPort(name string, port int) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(SetListenPort); err != nil {
		return err
	}
	md.ListenPort = port
	return nil
}

// SetLinkUp marks the link up.
func (md *MockDataplane) SetLinkUp(name string) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(SetLinkUp); err != nil {
		return err
	}
	md.Links[name] = true
	return nil
}

// SetFirewallMark records the mark.
func (md *MockDataplane) SetFirewallMark(name string, mark uint32) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(SetFirewallMark); err != nil {
		return err
	}
	md.FirewallMark = mark
	return nil
}

// AddDefaultRoute records the table.
func (md *MockDataplane) AddDefaultRoute(name string, table int) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(AddDefaultRoute); err != nil {
		return err
	}
	md.RouteTables = append(md.RouteTables, table)
	return nil
}

// SetPeer records the peer.
func (md *MockDataplane) SetPeer(name string, peer wgtypes.PeerConfig) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(SetPeer); err != nil {
		return err
	}
	md.Peers = append(md.Peers, peer)
	return nil
}

// AddRule records the rule.
func (md *MockDataplane) AddRule(rule provisioner.Rule) error {
	md.Lock()
	defer md.Unlock()
	if err := md.record(AddRule); err != nil {
		return err
	}
	md.Rules = append(md.Rules, rule)
	return nil
}

// Close marks the dataplane closed.
func (md *MockDataplane) Close() error {
	md.Lock()
	defer md.Unlock()
	md.Closed = true
	return nil
}

// MockNetNS tracks namespace switches without touching the kernel.
type MockNetNS struct {
	sync.Mutex

	// EnterErr, if set, is returned instead of entering.
	EnterErr error

	Entered []string
	Current string
}

var _ provisioner.NetNS = (*MockNetNS)(nil)

// Do runs fn with Current set to path and restores it afterwards.
func (mn *MockNetNS) Do(path string, fn func() error) error {
	mn.Lock()
	if mn.EnterErr != nil {
		mn.Unlock()
		return mn.EnterErr
	}
	previous := mn.Current
	mn.Current = path
	mn.Entered = append(mn.Entered, path)
	mn.Unlock()

	defer func() {
		mn.Lock()
		mn.Current = previous
		mn.Unlock()
	}()
	return fn()
}
