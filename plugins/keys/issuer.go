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
	"fmt"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

const (
	// SecretLabel marks key secrets with the name of their WireguardConfig.
	SecretLabel = "operator.podtunnel.com/wireguard_config"

	// PrivateKeyField and PublicKeyField are the secret data keys.
	PrivateKeyField = "private_key"
	PublicKeyField  = "public_key"
)

var (
	// ErrSecretWrite is returned when a key secret could not be created.
	ErrSecretWrite = errors.New("failed to write key secret")
	// ErrSecretRead is returned when a key secret could not be read.
	ErrSecretRead = errors.New("failed to read key secret")
	// ErrMalformedSecret is returned for a secret without usable keys.
	ErrMalformedSecret = errors.New("malformed key secret")
)

// secretError tags a store error with one of the sentinel kinds above.
type secretError struct {
	kind   error
	secret string
	err    error
}

func (e *secretError) Error() string {
	return fmt.Sprintf("%v %s: %v", e.kind, e.secret, e.err)
}

func (e *secretError) Is(target error) bool {
	return target == e.kind
}

func (e *secretError) Unwrap() error {
	return e.err
}

// Keypair is a WireGuard private key and its public key.
type Keypair struct {
	PrivateKey wgtypes.Key
	PublicKey  wgtypes.Key
}

// Issuer generates WireGuard keys and keeps them in secrets owned by the
// WireguardConfig they belong to.
type Issuer struct {
	Deps
}

// Deps lists dependencies of the Issuer.
type Deps struct {
	Log     logging.Logger
	Secrets corev1client.SecretsGetter
	// GenerateKey defaults to wgtypes.GeneratePrivateKey.
	GenerateKey func() (wgtypes.Key, error)
}

// NewIssuer creates a new Issuer.
func NewIssuer(deps Deps) *Issuer {
	if deps.GenerateKey == nil {
		deps.GenerateKey = wgtypes.GeneratePrivateKey
	}
	return &Issuer{Deps: deps}
}

// EnsureKey returns the keypair of the config together with a reference to
// the secret holding it. A fresh keypair is generated on every call; it is
// kept only if this call creates the secret. When the secret already exists
// the stored keypair wins and the fresh one is discarded.
func (i *Issuer) EnsureKey(ctx context.Context, cfg *v1alpha1.WireguardConfig) (*Keypair, v1alpha1.ObjectReference, error) {
	ref := v1alpha1.ObjectReference{Name: cfg.Name, Namespace: cfg.Namespace}

	private, err := i.GenerateKey()
	if err != nil {
		return nil, ref, errors.Wrap(err, "generate private key")
	}
	keypair := &Keypair{PrivateKey: private, PublicKey: private.PublicKey()}

	_, err = i.Secrets.Secrets(cfg.Namespace).Create(ctx, newKeySecret(cfg, keypair), metav1.CreateOptions{})
	switch {
	case err == nil:
		i.Log.WithField("secret", ref.String()).Info("Created private key secret")
		return keypair, ref, nil
	case apierrors.IsAlreadyExists(err):
		i.Log.Debugf("Private key secret %s already exists, reading it back", ref)
		stored, err := i.Load(ctx, ref)
		if err != nil {
			return nil, ref, err
		}
		return stored, ref, nil
	default:
		return nil, ref, &secretError{kind: ErrSecretWrite, secret: ref.String(), err: err}
	}
}

// Load reads the keypair stored in the referenced secret. A secret carrying
// only the private key gets its public key derived.
func (i *Issuer) Load(ctx context.Context, ref v1alpha1.ObjectReference) (*Keypair, error) {
	secret, err := i.Secrets.Secrets(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		return nil, &secretError{kind: ErrSecretRead, secret: ref.String(), err: err}
	}
	return parseKeySecret(secret)
}

func newKeySecret(cfg *v1alpha1.WireguardConfig, keypair *Keypair) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Name,
			Namespace: cfg.Namespace,
			Labels: map[string]string{
				SecretLabel: cfg.Name,
			},
			OwnerReferences: []metav1.OwnerReference{{
				APIVersion: v1alpha1.SchemeGroupVersion.String(),
				Kind:       v1alpha1.WireguardConfigKind,
				Name:       cfg.Name,
				UID:        cfg.UID,
			}},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			PrivateKeyField: []byte(keypair.PrivateKey.String()),
			PublicKeyField:  []byte(keypair.PublicKey.String()),
		},
	}
}

func parseKeySecret(secret *corev1.Secret) (*Keypair, error) {
	name := secret.Namespace + "/" + secret.Name
	malformed := func(format string, args ...interface{}) error {
		return &secretError{kind: ErrMalformedSecret, secret: name, err: errors.Errorf(format, args...)}
	}

	rawPrivate, ok := secret.Data[PrivateKeyField]
	if !ok {
		return nil, malformed("missing %s", PrivateKeyField)
	}
	private, err := wgtypes.ParseKey(string(rawPrivate))
	if err != nil {
		return nil, malformed("invalid %s", PrivateKeyField)
	}
	keypair := &Keypair{PrivateKey: private, PublicKey: private.PublicKey()}

	if rawPublic, ok := secret.Data[PublicKeyField]; ok {
		public, err := wgtypes.ParseKey(string(rawPublic))
		if err != nil {
			return nil, malformed("invalid %s: %v", PublicKeyField, err)
		}
		if public != keypair.PublicKey {
			return nil, malformed("%s does not match %s", PublicKeyField, PrivateKeyField)
		}
	}
	return keypair, nil
}
