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

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/keys"
)

// KeyStage makes sure every config has a private key secret and publishes
// the matching public key.
type KeyStage struct {
	KeyDeps
}

// KeyDeps lists dependencies of the KeyStage.
type KeyDeps struct {
	Log   logging.Logger
	Store store.Store
	Keys  keys.API
}

// NewKeyStage creates a new KeyStage.
func NewKeyStage(deps KeyDeps) *KeyStage {
	return &KeyStage{KeyDeps: deps}
}

// Name implements Stage.
func (s *KeyStage) Name() string {
	return KeyStageName
}

// Reconcile implements Stage.
func (s *KeyStage) Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (Result, error) {
	if cfg.Status.PrivateKey != nil {
		return Result{}, nil
	}

	var (
		keypair *keys.Keypair
		ref     v1alpha1.ObjectReference
		err     error
	)
	if cfg.Spec.Interface.PrivateKey != nil {
		// user supplied secret
		ref = cfg.Spec.Interface.PrivateKey.WithDefaultNamespace(cfg.Namespace)
		keypair, err = s.Keys.Load(ctx, ref)
	} else {
		keypair, ref, err = s.Keys.EnsureKey(ctx, cfg)
	}
	if err != nil {
		return Result{}, err
	}

	_, err = s.Store.PatchConfigStatus(ctx, cfg.Namespace, cfg.Name, store.StatusPatch{
		"privateKey": map[string]interface{}{
			"name":      ref.Name,
			"namespace": ref.Namespace,
		},
		"publicKey": keypair.PublicKey.String(),
	})
	if err != nil {
		return Result{}, err
	}
	s.Log.WithFields(logging.Fields{
		"config": cfg.Reference().String(),
		"secret": ref.String(),
	}).Info("Key assigned")
	return Result{}, nil
}
