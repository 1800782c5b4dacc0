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

package reconciler

import (
	"context"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/equality"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
)

// PeerStage resolves the peers listed in the spec into status.peers.
// Unlike the other stages it runs on every change, also after the config
// became ready, so that peers referencing each other converge.
type PeerStage struct {
	PeerDeps
}

// PeerDeps lists dependencies of the PeerStage.
type PeerDeps struct {
	Log   logging.Logger
	Store store.Store
}

// NewPeerStage creates a new PeerStage.
func NewPeerStage(deps PeerDeps) *PeerStage {
	return &PeerStage{PeerDeps: deps}
}

// Name implements Stage.
func (s *PeerStage) Name() string {
	return PeerStageName
}

// Reconcile implements Stage. Status is written only once every peer is
// resolved and only if the result differs from what is stored.
func (s *PeerStage) Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (Result, error) {
	var resolved []v1alpha1.PeerConfig
	for i := range cfg.Spec.Peers {
		peer, err := s.resolvePeer(ctx, cfg, &cfg.Spec.Peers[i])
		if err != nil {
			return Result{}, err
		}
		resolved = append(resolved, *peer)
	}

	if equality.Semantic.DeepEqual(resolved, cfg.Status.Peers) {
		return Result{}, nil
	}
	_, err := s.Store.PatchConfigStatus(ctx, cfg.Namespace, cfg.Name, store.StatusPatch{
		"peers": resolved,
	})
	if err != nil {
		return Result{}, err
	}
	s.Log.WithField("config", cfg.Reference().String()).
		Infof("Resolved %d peer(s)", len(resolved))
	return Result{}, nil
}

func (s *PeerStage) resolvePeer(ctx context.Context, cfg *v1alpha1.WireguardConfig,
	peer *v1alpha1.WireguardPeer) (*v1alpha1.PeerConfig, error) {

	if err := peer.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", cfg.Reference())
	}
	if peer.Config != nil {
		return peer.Config.DeepCopy(), nil
	}

	ref := peer.Ref.WithDefaultNamespace(cfg.Namespace)
	remote, err := s.Store.GetConfig(ctx, ref.Namespace, ref.Name)
	if store.IsNotFound(err) {
		return nil, errors.Wrapf(ErrPeerNotReady, "%s does not exist", ref)
	}
	if err != nil {
		return nil, err
	}
	return PeerFromConfig(remote)
}

// PeerFromConfig describes how to reach the interface of a ready config.
func PeerFromConfig(remote *v1alpha1.WireguardConfig) (*v1alpha1.PeerConfig, error) {
	status := &remote.Status
	switch {
	case !status.InterfaceReady:
		return nil, errors.Wrapf(ErrPeerNotReady, "%s interface is not ready", remote.Reference())
	case status.PublicKey == "", status.PodAddress == "", status.TunnelAddress == "":
		return nil, errors.Wrapf(ErrPeerNotReady, "%s status is incomplete", remote.Reference())
	}

	peer := &v1alpha1.PeerConfig{
		PublicKey:           status.PublicKey,
		EndpointAddress:     status.PodAddress,
		EndpointPort:        v1alpha1.Int32(remote.Spec.Interface.Port()),
		TunnelAddress:       status.TunnelAddress,
		AllowedIPs:          []string{status.TunnelAddress + "/32", status.PodAddress + "/32"},
		PersistentKeepalive: v1alpha1.Int32(v1alpha1.DefaultPersistentKeepalive),
	}
	if status.TunnelAddressPrefix != nil {
		peer.TunnelAddressPrefix = v1alpha1.Int32(*status.TunnelAddressPrefix)
	}
	return peer, nil
}
