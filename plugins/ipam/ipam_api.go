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
	"context"
	"net"

	"github.com/pkg/errors"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

var (
	// ErrInvalidCIDR is returned when the pool network is not an IPv4 CIDR.
	ErrInvalidCIDR = errors.New("invalid CIDR")
	// ErrPoolExhausted is returned when no host address of the pool is free.
	ErrPoolExhausted = errors.New("pool exhausted")
)

// API defines methods provided by the address pool allocator for use by the
// reconcilers.
type API interface {
	// AllocateFromPool returns the address (and the prefix length of the pool
	// network) granted to consumerKey by the referenced pool, allocating
	// and persisting a new one if the consumer has none yet.
	AllocateFromPool(ctx context.Context, pool v1alpha1.ObjectReference, consumerKey string) (net.IP, int, error)
}
