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

package tunnelstore

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
)

// MockStore is an in-memory implementation of store.Store. Objects carry a
// resource version bumped on every write; pool patches are rejected with a
// conflict when the version they were read at is stale.
type MockStore struct {
	sync.Mutex

	configs map[string]*v1alpha1.WireguardConfig
	pools   map[string]*v1alpha1.WireguardAddressPool
	version int

	// BeforePoolPatch, if set, runs before each pool patch is applied
	// (outside of the store lock). Tests use it to interleave writers.
	BeforePoolPatch func(pool *v1alpha1.WireguardAddressPool)
	// PatchErrors are returned, one per call, by PatchConfigStatus before
	// any patch is applied.
	PatchErrors []error

	ConfigPatches int
	PoolPatches   int
	PoolConflicts int
}

var _ store.Store = (*MockStore)(nil)

// NewMockStore returns an empty store.
func NewMockStore() *MockStore {
	return &MockStore{
		configs: make(map[string]*v1alpha1.WireguardConfig),
		pools:   make(map[string]*v1alpha1.WireguardAddressPool),
	}
}

func key(namespace, name string) string {
	return namespace + "/" + name
}

func (ms *MockStore) nextVersion() string {
	ms.version++
	return strconv.Itoa(ms.version)
}

// AddConfig stores a copy of cfg.
func (ms *MockStore) AddConfig(cfg *v1alpha1.WireguardConfig) {
	ms.Lock()
	defer ms.Unlock()
	stored := cfg.DeepCopy()
	stored.ResourceVersion = ms.nextVersion()
	ms.configs[key(cfg.Namespace, cfg.Name)] = stored
}

// AddPool stores a copy of pool.
func (ms *MockStore) AddPool(pool *v1alpha1.WireguardAddressPool) {
	ms.Lock()
	defer ms.Unlock()
	stored := pool.DeepCopy()
	stored.ResourceVersion = ms.nextVersion()
	ms.pools[key(pool.Namespace, pool.Name)] = stored
}

// Config returns a copy of the stored config, nil if missing.
func (ms *MockStore) Config(namespace, name string) *v1alpha1.WireguardConfig {
	ms.Lock()
	defer ms.Unlock()
	return ms.configs[key(namespace, name)].DeepCopy()
}

// Pool returns a copy of the stored pool, nil if missing.
func (ms *MockStore) Pool(namespace, name string) *v1alpha1.WireguardAddressPool {
	ms.Lock()
	defer ms.Unlock()
	return ms.pools[key(namespace, name)].DeepCopy()
}

// GetConfig implements store.Store.
func (ms *MockStore) GetConfig(ctx context.Context, namespace, name string) (*v1alpha1.WireguardConfig, error) {
	ms.Lock()
	defer ms.Unlock()
	cfg, ok := ms.configs[key(namespace, name)]
	if !ok {
		return nil, apierrors.NewNotFound(v1alpha1.Resource(v1alpha1.CRDWireguardConfigPlural), name)
	}
	return cfg.DeepCopy(), nil
}

// ListConfigs implements store.Store.
func (ms *MockStore) ListConfigs(ctx context.Context, namespace string) ([]v1alpha1.WireguardConfig, error) {
	ms.Lock()
	defer ms.Unlock()
	var configs []v1alpha1.WireguardConfig
	for _, cfg := range ms.configs {
		if namespace == "" || cfg.Namespace == namespace {
			configs = append(configs, *cfg.DeepCopy())
		}
	}
	return configs, nil
}

// PatchConfigStatus implements store.Store.
func (ms *MockStore) PatchConfigStatus(ctx context.Context, namespace, name string,
	patch store.StatusPatch) (*v1alpha1.WireguardConfig, error) {

	ms.Lock()
	defer ms.Unlock()
	if len(ms.PatchErrors) > 0 {
		err := ms.PatchErrors[0]
		ms.PatchErrors = ms.PatchErrors[1:]
		if err != nil {
			return nil, err
		}
	}
	cfg, ok := ms.configs[key(namespace, name)]
	if !ok {
		return nil, apierrors.NewNotFound(v1alpha1.Resource(v1alpha1.CRDWireguardConfigPlural), name)
	}
	patched := &v1alpha1.WireguardConfig{}
	if err := mergePatch(cfg, map[string]interface{}{"status": patch}, patched); err != nil {
		return nil, err
	}
	patched.ResourceVersion = ms.nextVersion()
	ms.configs[key(namespace, name)] = patched
	ms.ConfigPatches++
	return patched.DeepCopy(), nil
}

// GetPool implements store.Store.
func (ms *MockStore) GetPool(ctx context.Context, namespace, name string) (*v1alpha1.WireguardAddressPool, error) {
	ms.Lock()
	defer ms.Unlock()
	pool, ok := ms.pools[key(namespace, name)]
	if !ok {
		return nil, apierrors.NewNotFound(v1alpha1.Resource(v1alpha1.CRDWireguardAddressPoolPlural), name)
	}
	return pool.DeepCopy(), nil
}

// ListPools implements store.Store.
func (ms *MockStore) ListPools(ctx context.Context, namespace string) ([]v1alpha1.WireguardAddressPool, error) {
	ms.Lock()
	defer ms.Unlock()
	var pools []v1alpha1.WireguardAddressPool
	for _, pool := range ms.pools {
		if namespace == "" || pool.Namespace == namespace {
			pools = append(pools, *pool.DeepCopy())
		}
	}
	return pools, nil
}

// PatchPoolAllocation implements store.Store.
func (ms *MockStore) PatchPoolAllocation(ctx context.Context, pool *v1alpha1.WireguardAddressPool,
	consumerKey, address string) (*v1alpha1.WireguardAddressPool, error) {

	if ms.BeforePoolPatch != nil {
		ms.BeforePoolPatch(pool)
	}

	ms.Lock()
	defer ms.Unlock()
	stored, ok := ms.pools[key(pool.Namespace, pool.Name)]
	if !ok {
		return nil, apierrors.NewNotFound(v1alpha1.Resource(v1alpha1.CRDWireguardAddressPoolPlural), pool.Name)
	}
	if pool.ResourceVersion != "" && pool.ResourceVersion != stored.ResourceVersion {
		ms.PoolConflicts++
		return nil, apierrors.NewConflict(v1alpha1.Resource(v1alpha1.CRDWireguardAddressPoolPlural), pool.Name,
			errors.Errorf("resource version %s is stale", pool.ResourceVersion))
	}
	patched := &v1alpha1.WireguardAddressPool{}
	if err := mergePatch(stored, store.PoolAllocationPatch("", consumerKey, address), patched); err != nil {
		return nil, err
	}
	patched.ResourceVersion = ms.nextVersion()
	ms.pools[key(pool.Namespace, pool.Name)] = patched
	ms.PoolPatches++
	return patched.DeepCopy(), nil
}

func mergePatch(original interface{}, patch map[string]interface{}, out interface{}) error {
	originalJSON, err := json.Marshal(original)
	if err != nil {
		return err
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	merged, err := jsonpatch.MergePatch(originalJSON, patchJSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, out)
}
