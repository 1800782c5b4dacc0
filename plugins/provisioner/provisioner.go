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
	"context"
	"net"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/keys"
)

var (
	// ErrProvisioningTimedOut is returned when the config did not become
	// ready before the deadline of the caller.
	ErrProvisioningTimedOut = errors.New("timed out waiting for the tunnel config to become ready")
	// ErrNamespaceSwitch is returned when the pod network namespace could
	// not be entered.
	ErrNamespaceSwitch = errors.New("failed to enter network namespace")
)

// readinessBackoff paces the polling of the config; delays are capped at
// readinessMaxDelay.
var readinessBackoff = wait.Backoff{
	Duration: 100 * time.Millisecond,
	Factor:   2,
	Steps:    1 << 30,
	Cap:      readinessMaxDelay,
}

const readinessMaxDelay = 5 * time.Second

// Request identifies the pod being set up.
type Request struct {
	// Namespace and Name of the WireguardConfig, same as the pod.
	Namespace string
	Name      string
	// Netns is the path of the pod network namespace.
	Netns string
	// PodIP is the primary IPv4 address of the pod.
	PodIP net.IP
}

// Result describes the provisioned tunnel interface.
type Result struct {
	Interface string
	Address   *net.IPNet
}

// Provisioner builds the tunnel interface of a pod once its config is ready.
type Provisioner struct {
	Deps
}

// Deps lists dependencies of the Provisioner.
type Deps struct {
	Log   logging.Logger
	Store store.Store
	Keys  keys.API
	NetNS NetNS
	// NewDataplane is called inside the pod network namespace.
	NewDataplane func() (Dataplane, error)
}

// NewProvisioner creates a new Provisioner. NetNS and NewDataplane default
// to the kernel implementations.
func NewProvisioner(deps Deps) *Provisioner {
	if deps.NetNS == nil {
		deps.NetNS = NewNetNS()
	}
	if deps.NewDataplane == nil {
		deps.NewDataplane = NewNetlinkDataplane
	}
	return &Provisioner{Deps: deps}
}

// Provision publishes the pod address, waits until ctx is done for the
// config to become ready and builds the tunnel interface. A nil result
// with nil error means the pod has no tunnel config.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	log := p.Log.WithFields(logging.Fields{
		"config": req.Namespace + "/" + req.Name,
		"netns":  req.Netns,
	})

	cfg, err := p.Store.GetConfig(ctx, req.Namespace, req.Name)
	if store.IsNotFound(err) {
		log.Debug("No tunnel config for pod")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, err = p.waitReady(ctx, log, req)
	if err != nil || cfg == nil {
		return nil, err
	}

	status := &cfg.Status
	keypair, err := p.Keys.Load(ctx, *status.PrivateKey)
	if err != nil {
		return nil, err
	}
	tunnelIP := net.ParseIP(status.TunnelAddress).To4()
	if tunnelIP == nil {
		return nil, errors.Errorf("config %s: invalid tunnel address %q", cfg.Reference(), status.TunnelAddress)
	}
	address := &net.IPNet{IP: tunnelIP, Mask: net.CIDRMask(int(*status.TunnelAddressPrefix), 32)}

	iface := InterfaceConfig{
		Address:    address,
		PrivateKey: keypair.PrivateKey,
		ListenPort: int(cfg.Spec.Interface.Port()),
		Peers:      status.Peers,
	}
	err = p.NetNS.Do(req.Netns, func() error {
		dp, err := p.NewDataplane()
		if err != nil {
			return err
		}
		defer dp.Close()
		return ConfigureInterface(dp, iface)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Tunnel interface %s configured with %s and %d peer(s)", InterfaceName, address, len(iface.Peers))
	return &Result{Interface: InterfaceName, Address: address}, nil
}

// waitReady polls the config, publishing the pod address whenever it is
// missing or stale, until the config is ready for provisioning.
func (p *Provisioner) waitReady(ctx context.Context, log logging.LogWithLevel, req Request) (*v1alpha1.WireguardConfig, error) {
	backoff := readinessBackoff
	podAddress := req.PodIP.String()

	for {
		cfg, err := p.Store.GetConfig(ctx, req.Namespace, req.Name)
		switch {
		case store.IsNotFound(err):
			log.Info("Tunnel config was deleted while waiting")
			return nil, nil
		case err != nil:
			log.Warnf("Failed to read tunnel config: %v", err)
		case cfg.Status.PodAddress != podAddress:
			_, err = p.Store.PatchConfigStatus(ctx, req.Namespace, req.Name, store.StatusPatch{
				"podAddress": podAddress,
			})
			if err == nil {
				log.Debugf("Published pod address %s", podAddress)
				continue
			}
			// conflicts included, the next round starts from a fresh read
			log.Warnf("Failed to publish pod address %s: %v", podAddress, err)
		case cfg.ReadyForProvisioning():
			return cfg, nil
		default:
			log.Debugf("Waiting for tunnel config (phase %s)", cfg.Phase())
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ErrProvisioningTimedOut, "%s/%s", req.Namespace, req.Name)
		case <-time.After(backoff.Step()):
		}
	}
}
