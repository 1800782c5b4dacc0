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
	"bytes"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Executor runs external programs.
type Executor interface {
	Run(program string, args ...string) ([]byte, error)
	RunWithInput(stdin []byte, program string, args ...string) ([]byte, error)
}

// CommandError is returned when a program exits unsuccessfully.
type CommandError struct {
	Program string
	Args    []string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v: %s", e.Program, strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// execExecutor runs programs with os/exec.
type execExecutor struct{}

// NewExecutor returns an Executor that runs programs found in $PATH.
func NewExecutor() Executor {
	return execExecutor{}
}

func (execExecutor) Run(program string, args ...string) ([]byte, error) {
	return execExecutor{}.RunWithInput(nil, program, args...)
}

func (execExecutor) RunWithInput(stdin []byte, program string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(program, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &CommandError{Program: program, Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// commandDataplane drives the ip and wg tools.
type commandDataplane struct {
	exec Executor
}

// NewCommandDataplane returns a Dataplane running ip and wg through exec.
func NewCommandDataplane(executor Executor) Dataplane {
	return &commandDataplane{exec: executor}
}

func (d *commandDataplane) ip(args ...string) error {
	_, err := d.exec.Run("ip", args...)
	return err
}

func (d *commandDataplane) wg(args ...string) error {
	_, err := d.exec.Run("wg", args...)
	return err
}

func (d *commandDataplane) AddLink(name string) error {
	return d.ip("link", "add", "dev", name, "type", "wireguard")
}

func (d *commandDataplane) AddAddress(name string, addr *net.IPNet) error {
	return d.ip("address", "add", addr.String(), "dev", name)
}

func (d *commandDataplane) SetPrivateKey(name string, key wgtypes.Key) error {
	// the key must not show up in the process list
	_, err := d.exec.RunWithInput([]byte(key.String()+"\n"), "wg", "set", name, "private-key", "/dev/stdin")
	return err
}

func (d *commandDataplane) SetListenPort(name string, port int) error {
	return d.wg("set", name, "listen-port", strconv.Itoa(port))
}

func (d *commandDataplane) SetLinkUp(name string) error {
	return d.ip("link", "set", name, "up")
}

func (d *commandDataplane) SetFirewallMark(name string, mark uint32) error {
	return d.wg("set", name, "fwmark", strconv.FormatUint(uint64(mark), 10))
}

func (d *commandDataplane) AddDefaultRoute(name string, table int) error {
	return d.ip("route", "add", "default", "dev", name, "table", tableName(table))
}

func (d *commandDataplane) SetPeer(name string, peer wgtypes.PeerConfig) error {
	args := []string{"set", name, "peer", peer.PublicKey.String()}
	if len(peer.AllowedIPs) > 0 {
		args = append(args, "allowed-ips", joinIPNets(peer.AllowedIPs))
	}
	if peer.Endpoint != nil {
		args = append(args, "endpoint", peer.Endpoint.String())
	}
	if peer.PersistentKeepaliveInterval != nil {
		args = append(args, "persistent-keepalive",
			strconv.Itoa(int(*peer.PersistentKeepaliveInterval/time.Second)))
	}
	return d.wg(args...)
}

func (d *commandDataplane) AddRule(rule Rule) error {
	args := []string{"rule", "add"}
	if rule.Dst != nil {
		args = append(args, "to", rule.Dst.String())
	}
	if rule.MatchMark {
		args = append(args, "fwmark", strconv.FormatUint(uint64(rule.Mark), 10))
	}
	args = append(args, "table", tableName(rule.Table))
	if rule.SuppressPrefixlen >= 0 {
		args = append(args, "suppress_prefixlength", strconv.Itoa(rule.SuppressPrefixlen))
	}
	args = append(args, "priority", strconv.Itoa(rule.Priority))
	return d.ip(args...)
}

func (d *commandDataplane) Close() error {
	return nil
}
