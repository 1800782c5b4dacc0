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
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
)

const maxAllocationAttempts = 10

// allocationBackoff paces the re-reads after a lost allocation race.
var allocationBackoff = wait.Backoff{
	Steps:    maxAllocationAttempts,
	Duration: 10 * time.Millisecond,
	Factor:   1.5,
	Jitter:   0.1,
}

// Allocator assigns pool addresses and persists them in the object store.
type Allocator struct {
	Deps
}

// Deps lists dependencies of the Allocator.
type Deps struct {
	Log   logging.Logger
	Store store.Store
}

// NewAllocator creates a new Allocator.
func NewAllocator(deps Deps) *Allocator {
	return &Allocator{Deps: deps}
}

// AllocateFromPool implements API. The pool is read, Assign is run on the
// fresh copy and the new allocation is patched back guarded by the read
// resource version. A conflict restarts the sequence from the read.
func (a *Allocator) AllocateFromPool(ctx context.Context, poolRef v1alpha1.ObjectReference,
	consumerKey string) (ip net.IP, prefix int, err error) {

	attempts := 0
	err = retry.RetryOnConflict(allocationBackoff, func() error {
		attempts++
		pool, err := a.Store.GetPool(ctx, poolRef.Namespace, poolRef.Name)
		if err != nil {
			return err
		}
		_, known := pool.Status.Allocation[consumerKey]

		ip, prefix, err = Assign(pool, consumerKey)
		if err != nil || known {
			return err
		}

		_, err = a.Store.PatchPoolAllocation(ctx, pool, consumerKey, ip.String())
		if store.IsConflict(err) {
			// pool changed in the store, re-read and retry
			a.Log.Debugf("Pool %s changed while assigning %s to %s (attempt %d)",
				poolRef, ip, consumerKey, attempts)
			return err
		}
		if err != nil {
			return err
		}
		a.Log.WithFields(logging.Fields{
			"pool":     poolRef.String(),
			"consumer": consumerKey,
		}).Infof("Assigned tunnel address %s/%d", ip, prefix)
		return nil
	})
	if store.IsConflict(err) {
		err = errors.WithMessagef(err, "address allocation in pool %s failed in %d attempts", poolRef, attempts)
	}
	if err != nil {
		return nil, 0, err
	}
	return ip, prefix, nil
}
