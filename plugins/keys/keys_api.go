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

package keys

import (
	"context"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

// API defines methods provided by the key issuer for use by the reconcilers
// and the interface provisioner.
type API interface {
	// EnsureKey returns the keypair of the config, creating its secret if
	// there is none yet.
	EnsureKey(ctx context.Context, cfg *v1alpha1.WireguardConfig) (*Keypair, v1alpha1.ObjectReference, error)

	// Load reads the keypair from the referenced secret.
	Load(ctx context.Context, ref v1alpha1.ObjectReference) (*Keypair, error)
}

var _ API = (*Issuer)(nil)
