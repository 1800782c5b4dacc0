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

package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

// StatusPatch is the content of a JSON merge patch applied to the status
// subresource. Keys are the JSON field names of WireguardConfigStatus.
type StatusPatch map[string]interface{}

// Store is the remote object store holding tunnel configs and address pools.
// Conflicts and missing objects are reported as Kubernetes API errors, see
// IsConflict and IsNotFound.
type Store interface {
	GetConfig(ctx context.Context, namespace, name string) (*v1alpha1.WireguardConfig, error)
	ListConfigs(ctx context.Context, namespace string) ([]v1alpha1.WireguardConfig, error)
	PatchConfigStatus(ctx context.Context, namespace, name string, patch StatusPatch) (*v1alpha1.WireguardConfig, error)

	GetPool(ctx context.Context, namespace, name string) (*v1alpha1.WireguardAddressPool, error)
	ListPools(ctx context.Context, namespace string) ([]v1alpha1.WireguardAddressPool, error)
	// PatchPoolAllocation records a single allocation. The write is guarded
	// by the resource version of pool and fails with a conflict when the
	// pool changed since it was read.
	PatchPoolAllocation(ctx context.Context, pool *v1alpha1.WireguardAddressPool, consumerKey, address string) (*v1alpha1.WireguardAddressPool, error)
}

// IsConflict reports a failed optimistic-concurrency check.
func IsConflict(err error) bool {
	return apierrors.IsConflict(errors.Cause(err))
}

// IsNotFound reports a missing object.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(errors.Cause(err))
}

// KubeStore implements Store over the dynamic client.
type KubeStore struct {
	client dynamic.Interface
}

// NewKubeStore returns a Store talking to the API server behind client.
func NewKubeStore(client dynamic.Interface) *KubeStore {
	return &KubeStore{client: client}
}

func (s *KubeStore) configs(namespace string) dynamic.ResourceInterface {
	return s.client.Resource(v1alpha1.WireguardConfigResource).Namespace(namespace)
}

func (s *KubeStore) pools(namespace string) dynamic.ResourceInterface {
	return s.client.Resource(v1alpha1.WireguardAddressPoolResource).Namespace(namespace)
}

// GetConfig reads one WireguardConfig.
func (s *KubeStore) GetConfig(ctx context.Context, namespace, name string) (*v1alpha1.WireguardConfig, error) {
	u, err := s.configs(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.WithMessagef(err, "get %s %s/%s", v1alpha1.WireguardConfigKind, namespace, name)
	}
	return ConfigFromUnstructured(u)
}

// ListConfigs lists WireguardConfigs, all namespaces when namespace is empty.
func (s *KubeStore) ListConfigs(ctx context.Context, namespace string) ([]v1alpha1.WireguardConfig, error) {
	list, err := s.configs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.WithMessage(err, "list "+v1alpha1.CRDWireguardConfigPlural)
	}
	configs := make([]v1alpha1.WireguardConfig, 0, len(list.Items))
	for i := range list.Items {
		cfg, err := ConfigFromUnstructured(&list.Items[i])
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

// PatchConfigStatus merge-patches the status subresource of a WireguardConfig.
func (s *KubeStore) PatchConfigStatus(ctx context.Context, namespace, name string, patch StatusPatch) (*v1alpha1.WireguardConfig, error) {
	data, err := json.Marshal(map[string]interface{}{"status": patch})
	if err != nil {
		return nil, errors.Wrap(err, "marshal status patch")
	}
	u, err := s.configs(namespace).Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{}, "status")
	if err != nil {
		return nil, errors.WithMessagef(err, "patch %s %s/%s status", v1alpha1.WireguardConfigKind, namespace, name)
	}
	return ConfigFromUnstructured(u)
}

// GetPool reads one WireguardAddressPool.
func (s *KubeStore) GetPool(ctx context.Context, namespace, name string) (*v1alpha1.WireguardAddressPool, error) {
	u, err := s.pools(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.WithMessagef(err, "get %s %s/%s", v1alpha1.WireguardAddressPoolKind, namespace, name)
	}
	return PoolFromUnstructured(u)
}

// ListPools lists WireguardAddressPools, all namespaces when namespace is empty.
func (s *KubeStore) ListPools(ctx context.Context, namespace string) ([]v1alpha1.WireguardAddressPool, error) {
	list, err := s.pools(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.WithMessage(err, "list "+v1alpha1.CRDWireguardAddressPoolPlural)
	}
	pools := make([]v1alpha1.WireguardAddressPool, 0, len(list.Items))
	for i := range list.Items {
		pool, err := PoolFromUnstructured(&list.Items[i])
		if err != nil {
			return nil, err
		}
		pools = append(pools, *pool)
	}
	return pools, nil
}

// PatchPoolAllocation adds consumerKey -> address to the pool status. The
// patch carries the resource version the pool was read at, which makes the
// API server reject it with 409 when another writer got there first.
func (s *KubeStore) PatchPoolAllocation(ctx context.Context, pool *v1alpha1.WireguardAddressPool,
	consumerKey, address string) (*v1alpha1.WireguardAddressPool, error) {

	data, err := json.Marshal(PoolAllocationPatch(pool.ResourceVersion, consumerKey, address))
	if err != nil {
		return nil, errors.Wrap(err, "marshal pool patch")
	}
	u, err := s.pools(pool.Namespace).Patch(ctx, pool.Name, types.MergePatchType, data, metav1.PatchOptions{}, "status")
	if err != nil {
		return nil, errors.WithMessagef(err, "patch %s %s/%s status", v1alpha1.WireguardAddressPoolKind, pool.Namespace, pool.Name)
	}
	return PoolFromUnstructured(u)
}

// PoolAllocationPatch builds the merge patch recording one allocation.
func PoolAllocationPatch(resourceVersion, consumerKey, address string) map[string]interface{} {
	return map[string]interface{}{
		"metadata": map[string]interface{}{
			"resourceVersion": resourceVersion,
		},
		"status": map[string]interface{}{
			"allocation": map[string]interface{}{
				consumerKey: address,
			},
		},
	}
}

// ConfigFromUnstructured converts a dynamic client object to a WireguardConfig.
func ConfigFromUnstructured(u *unstructured.Unstructured) (*v1alpha1.WireguardConfig, error) {
	cfg := &v1alpha1.WireguardConfig{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), cfg); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s/%s", v1alpha1.WireguardConfigKind, u.GetNamespace(), u.GetName())
	}
	return cfg, nil
}

// PoolFromUnstructured converts a dynamic client object to a WireguardAddressPool.
func PoolFromUnstructured(u *unstructured.Unstructured) (*v1alpha1.WireguardAddressPool, error) {
	pool := &v1alpha1.WireguardAddressPool{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), pool); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s/%s", v1alpha1.WireguardAddressPoolKind, u.GetNamespace(), u.GetName())
	}
	return pool, nil
}

// ToUnstructured converts a typed object for the dynamic client, filling in
// apiVersion and kind.
func ToUnstructured(obj runtime.Object) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, errors.Wrap(err, "encode object")
	}
	u := &unstructured.Unstructured{Object: content}
	u.SetAPIVersion(v1alpha1.SchemeGroupVersion.String())
	switch obj.(type) {
	case *v1alpha1.WireguardConfig:
		u.SetKind(v1alpha1.WireguardConfigKind)
	case *v1alpha1.WireguardAddressPool:
		u.SetKind(v1alpha1.WireguardAddressPoolKind)
	}
	return u, nil
}
