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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/containernetworking/cni/pkg/skel"
	"github.com/containernetworking/cni/pkg/types"
	types100 "github.com/containernetworking/cni/pkg/types/100"
	"github.com/containernetworking/cni/pkg/version"
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/pkg/errors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/keys"
	"github.com/contiv/podtunnel/plugins/provisioner"
)

const (
	defaultKubeconfig       = "/etc/kubernetes/admin.conf"
	defaultReadinessTimeout = 2 * time.Minute

	dataplaneNetlink = "netlink"
	dataplaneCommand = "command"
)

// cniConfig represents the CNI configuration, usually located in the /etc/cni/net.d/
// folder, automatically picked by the executor of the CNI plugin and passed in via the standard input.
type cniConfig struct {
	// common CNI config, including the previous result of the chain
	types.NetConf

	// Kubeconfig is the path of the kubeconfig used to reach the API server.
	Kubeconfig string `json:"kubeconfig"`

	// ReadinessTimeout limits the wait for the tunnel config, e.g. "2m".
	ReadinessTimeout string `json:"readinessTimeout"`

	// Dataplane selects how the interface is configured, "netlink" (default)
	// or "command" (ip and wg tools).
	Dataplane string `json:"dataplane"`

	// LogFile receives the plugin log; stdout is reserved for the result.
	LogFile  string `json:"logFile"`
	LogLevel string `json:"logLevel"`

	readinessTimeout time.Duration
}

// k8sArgs are the pod identifiers passed in CNI_ARGS by the kubelet.
type k8sArgs struct {
	types.CommonArgs
	K8S_POD_NAME      types.UnmarshallableString // nolint: golint
	K8S_POD_NAMESPACE types.UnmarshallableString // nolint: golint
}

// tunnelProvisioner is the part of provisioner.Provisioner used by the plugin.
type tunnelProvisioner interface {
	Provision(ctx context.Context, req provisioner.Request) (*provisioner.Result, error)
}

// newProvisioner builds the provisioner; tests replace it.
var newProvisioner = kubeProvisioner

// parseCNIConfig parses CNI config from JSON (in bytes) to cniConfig struct.
func parseCNIConfig(bytes []byte) (*cniConfig, error) {
	conf := &cniConfig{}
	if err := json.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("failed to load plugin config: %v", err)
	}

	if conf.Kubeconfig == "" {
		conf.Kubeconfig = defaultKubeconfig
	}
	conf.readinessTimeout = defaultReadinessTimeout
	if conf.ReadinessTimeout != "" {
		timeout, err := time.ParseDuration(conf.ReadinessTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid readinessTimeout %q: %v", conf.ReadinessTimeout, err)
		}
		conf.readinessTimeout = timeout
	}
	switch conf.Dataplane {
	case "":
		conf.Dataplane = dataplaneNetlink
	case dataplaneNetlink, dataplaneCommand:
	default:
		return nil, fmt.Errorf("unknown dataplane %q", conf.Dataplane)
	}

	if err := version.ParsePrevResult(&conf.NetConf); err != nil {
		return nil, fmt.Errorf("failed to parse prevResult: %v", err)
	}
	return conf, nil
}

// newLogger creates the plugin logger writing to the configured log file.
func newLogger(conf *cniConfig) (logging.Logger, func(), error) {
	logger := logrus.NewLogger("podtunnel-cni")
	if conf.LogLevel != "" {
		logger.SetLevel(logging.ParseLogLevel(conf.LogLevel))
	}

	closeLog := func() {}
	if conf.LogFile == "" {
		logger.SetOutput(io.Discard)
	} else {
		file, err := os.OpenFile(conf.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %v", conf.LogFile, err)
		}
		logger.SetOutput(file)
		closeLog = func() { file.Close() }
	}

	return logger, closeLog, nil
}

// kubeProvisioner connects to the API server described by the kubeconfig.
func kubeProvisioner(conf *cniConfig, log logging.Logger) (tunnelProvisioner, error) {
	restConfig, err := clientcmd.BuildConfigFromFlags("", conf.Kubeconfig)
	if err != nil {
		return nil, errors.Wrapf(err, "load kubeconfig %s", conf.Kubeconfig)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	k8sClient, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}

	newDataplane := provisioner.NewNetlinkDataplane
	if conf.Dataplane == dataplaneCommand {
		newDataplane = func() (provisioner.Dataplane, error) {
			return provisioner.NewCommandDataplane(provisioner.NewExecutor()), nil
		}
	}

	return provisioner.NewProvisioner(provisioner.Deps{
		Log:          log,
		Store:        store.NewKubeStore(dynamicClient),
		Keys:         keys.NewIssuer(keys.Deps{Log: log, Secrets: k8sClient.CoreV1()}),
		NewDataplane: newDataplane,
	}), nil
}

// podIP returns the IPv4 address the previous plugins gave the interface
// inside the pod network namespace.
func podIP(result *types100.Result, netns string) (net.IP, error) {
	for _, ipc := range result.IPs {
		if ipc.Interface == nil || *ipc.Interface < 0 || *ipc.Interface >= len(result.Interfaces) {
			continue
		}
		if result.Interfaces[*ipc.Interface].Sandbox != netns {
			continue
		}
		if ip := ipc.Address.IP.To4(); ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address of an interface in %s found in prevResult", netns)
}

// cmdAdd implements the CNI request to add a container to network.
// It configures the tunnel interface and prints the extended previous result.
func cmdAdd(args *skel.CmdArgs) error {
	conf, err := parseCNIConfig(args.StdinData)
	if err != nil {
		return types.NewError(types.ErrDecodingFailure, "InvalidConfig", err.Error())
	}
	log, closeLog, err := newLogger(conf)
	if err != nil {
		return err
	}
	defer closeLog()

	result, err := addTunnel(conf, args, log)
	if err != nil {
		return err
	}
	return types.PrintResult(result, conf.CNIVersion)
}

// addTunnel provisions the tunnel of the pod and returns prevResult with
// the tunnel interface appended. prevResult is returned unchanged for pods
// without a tunnel config.
func addTunnel(conf *cniConfig, args *skel.CmdArgs, log logging.Logger) (*types100.Result, error) {
	if conf.PrevResult == nil {
		return nil, types.NewError(types.ErrInvalidNetworkConfig, "MissingPrevResult",
			"podtunnel must be chained after a plugin assigning the pod IP")
	}
	result, err := types100.NewResultFromResult(conf.PrevResult)
	if err != nil {
		return nil, err
	}

	cniArgs := &k8sArgs{}
	if err := types.LoadArgs(args.Args, cniArgs); err != nil {
		return nil, types.NewError(types.ErrInvalidNetworkConfig, "InvalidArgs",
			fmt.Sprintf("unable to extract CNI arguments: %s", err))
	}
	namespace, name := string(cniArgs.K8S_POD_NAMESPACE), string(cniArgs.K8S_POD_NAME)
	if namespace == "" || name == "" {
		return nil, types.NewError(types.ErrInvalidNetworkConfig, "InvalidArgs",
			"K8S_POD_NAMESPACE and K8S_POD_NAME are required")
	}
	fields := logging.Fields{
		"pod":         namespace + "/" + name,
		"containerID": args.ContainerID,
		"netns":       args.Netns,
	}

	ip, err := podIP(result, args.Netns)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidNetworkConfig, "NoPodIP", err.Error())
	}

	prov, err := newProvisioner(conf, log)
	if err != nil {
		return nil, types.NewError(types.ErrTryAgainLater, "APIUnavailable", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.readinessTimeout)
	defer cancel()
	tunnel, err := prov.Provision(ctx, provisioner.Request{
		Namespace: namespace,
		Name:      name,
		Netns:     args.Netns,
		PodIP:     ip,
	})
	if errors.Is(err, provisioner.ErrProvisioningTimedOut) {
		log.WithFields(fields).Error(err)
		return nil, types.NewError(types.ErrTryAgainLater, "TunnelNotReady", err.Error())
	}
	if err != nil {
		log.WithFields(fields).Error(err)
		return nil, err
	}

	if tunnel != nil {
		result.Interfaces = append(result.Interfaces, &types100.Interface{
			Name:    tunnel.Interface,
			Sandbox: args.Netns,
		})
		ifIndex := len(result.Interfaces) - 1
		result.IPs = append(result.IPs, &types100.IPConfig{
			Interface: &ifIndex,
			Address:   *tunnel.Address,
		})
		log.WithFields(fields).Infof("Added %s with %s", tunnel.Interface, tunnel.Address)
	} else {
		log.WithFields(fields).Info("No tunnel requested")
	}
	return result, nil
}

// cmdDel implements the CNI request to delete a container from network.
// The interface disappears together with the pod network namespace.
func cmdDel(args *skel.CmdArgs) error {
	return nil
}

// cmdCheck implements the CNI request to check the container network.
func cmdCheck(args *skel.CmdArgs) error {
	return nil
}

// main routine of the CNI plugin
func main() {
	skel.PluginMain(cmdAdd, cmdCheck, cmdDel, version.All, "podtunnel CNI plugin")
}
