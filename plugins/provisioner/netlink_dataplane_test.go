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
	"testing"

	. "github.com/onsi/gomega"
	"github.com/vishvananda/netlink"
)

func TestNetlinkRule(t *testing.T) {
	RegisterTestingT(t)

	dst := &net.IPNet{IP: net.ParseIP("172.16.0.6").To4(), Mask: net.CIDRMask(32, 32)}

	rule := netlinkRule(Rule{Dst: dst, Mark: 0, MatchMark: true, Table: RoutingTable, Priority: 2, SuppressPrefixlen: -1})
	Expect(rule.Family).To(Equal(netlink.FAMILY_V4))
	Expect(rule.Dst).To(Equal(dst))
	Expect(rule.Mark).To(BeEquivalentTo(0))
	Expect(rule.Mask).ToNot(BeNil())
	Expect(*rule.Mask).To(BeEquivalentTo(0xFFFFFFFF))
	Expect(rule.Table).To(Equal(RoutingTable))
	Expect(rule.Priority).To(Equal(2))
	Expect(rule.SuppressPrefixlen).To(Equal(-1))

	suppress := netlinkRule(Rule{Table: MainTable, Priority: 3, SuppressPrefixlen: 0})
	Expect(suppress.Dst).To(BeNil())
	Expect(suppress.Mask).To(BeNil())
	Expect(suppress.Table).To(Equal(254))
	Expect(suppress.SuppressPrefixlen).To(Equal(0))
}

func TestTableName(t *testing.T) {
	RegisterTestingT(t)

	Expect(tableName(MainTable)).To(Equal("main"))
	Expect(tableName(RoutingTable)).To(Equal("129518285"))
}
