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

package ipam

import (
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/pkg/errors"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

// ParseNetwork parses an IPv4 CIDR into its network.
func ParseNetwork(network string) (*net.IPNet, error) {
	ip, ipNet, err := net.ParseCIDR(network)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCIDR, "%q: %v", network, err)
	}
	if ip.To4() == nil {
		return nil, errors.Wrapf(ErrInvalidCIDR, "%q is not an IPv4 network", network)
	}
	return ipNet, nil
}

// Assign returns the address of consumerKey in the pool. A consumer without
// an allocation gets the lowest free host address, which is recorded in
// pool.Status.Allocation. The caller persists the pool.
func Assign(pool *v1alpha1.WireguardAddressPool, consumerKey string) (net.IP, int, error) {
	network, err := ParseNetwork(pool.Spec.CIDR())
	if err != nil {
		return nil, 0, err
	}
	prefix, _ := network.Mask.Size()

	if addr, exists := pool.Status.Allocation[consumerKey]; exists {
		ip := net.ParseIP(addr)
		if ip == nil || ip.To4() == nil {
			return nil, 0, errors.Errorf("pool %s/%s holds malformed address %q for %s",
				pool.Namespace, pool.Name, addr, consumerKey)
		}
		return ip.To4(), prefix, nil
	}

	allocated := make(map[string]struct{}, len(pool.Status.Allocation))
	for _, addr := range pool.Status.Allocation {
		if ip := net.ParseIP(addr); ip != nil {
			allocated[ip.String()] = struct{}{}
		}
	}

	_, broadcast := cidr.AddressRange(network)
	count := cidr.AddressCount(network)
	for offset := uint64(1); offset < count; offset++ {
		ip, err := cidr.Host(network, int(offset))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "pool %s/%s", pool.Namespace, pool.Name)
		}
		if ip.Equal(broadcast) || ip.IsUnspecified() {
			continue
		}
		if _, used := allocated[ip.String()]; used {
			continue
		}

		if pool.Status.Allocation == nil {
			pool.Status.Allocation = make(map[string]string)
		}
		ip = ip.To4()
		pool.Status.Allocation[consumerKey] = ip.String()
		return ip, prefix, nil
	}

	return nil, 0, errors.Wrapf(ErrPoolExhausted, "pool %s/%s (%s)", pool.Namespace, pool.Name, network)
}

// Usable returns the number of addresses the pool can hand out in total.
func Usable(pool *v1alpha1.WireguardAddressPool) (uint64, error) {
	network, err := ParseNetwork(pool.Spec.CIDR())
	if err != nil {
		return 0, err
	}
	count := cidr.AddressCount(network)
	if count < 3 {
		// /31 and /32: the only host offset is the broadcast address
		return 0, nil
	}
	return count - 2, nil
}
