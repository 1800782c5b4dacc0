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
	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/pkg/errors"
)

// NetNS runs a function inside a network namespace.
type NetNS interface {
	// Do switches the calling OS thread into the namespace at path, runs
	// fn and switches back, also when fn fails.
	Do(path string, fn func() error) error
}

// netNSSwitcher enters namespaces with the containernetworking ns package,
// which locks the goroutine to its OS thread for the duration of fn.
type netNSSwitcher struct{}

// NewNetNS returns the default NetNS implementation.
func NewNetNS() NetNS {
	return netNSSwitcher{}
}

func (netNSSwitcher) Do(path string, fn func() error) error {
	entered := false
	err := ns.WithNetNSPath(path, func(ns.NetNS) error {
		entered = true
		return fn()
	})
	if err != nil && !entered {
		return errors.Wrapf(ErrNamespaceSwitch, "%s: %v", path, err)
	}
	return err
}
