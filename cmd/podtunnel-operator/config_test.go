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
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "operator.yaml")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	RegisterTestingT(t)

	cfg, err := loadConfig(nil)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg).To(Equal(defaultConfig()))
	Expect(cfg.RetryInterval.Duration).To(Equal(time.Second))
	Expect(cfg.RegisterCRDs).To(BeTrue())
}

func TestLoadConfigFile(t *testing.T) {
	RegisterTestingT(t)

	path := writeConfigFile(t, `
kubeconfig: /etc/kubernetes/admin.conf
namespace: tunnels
workers: 3
retryInterval: 2s
registerCRDs: false
`)
	cfg, err := loadConfig([]string{"-config-file", path})
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.Kubeconfig).To(Equal("/etc/kubernetes/admin.conf"))
	Expect(cfg.Namespace).To(Equal("tunnels"))
	Expect(cfg.Workers).To(Equal(3))
	Expect(cfg.RetryInterval.Duration).To(Equal(2 * time.Second))
	Expect(cfg.RegisterCRDs).To(BeFalse())
	// unset fields keep their defaults
	Expect(cfg.HTTPAddress).To(Equal(defaultHTTPAddress))
	Expect(cfg.ResyncPeriod.Duration).To(Equal(defaultResyncPeriod))
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	RegisterTestingT(t)

	path := writeConfigFile(t, "workers: 3\nlogLevel: warn\n")
	cfg, err := loadConfig([]string{"-config-file", path, "-workers", "5", "-http-address", ""})
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.Workers).To(Equal(5))
	Expect(cfg.LogLevel).To(Equal("warn"))
	Expect(cfg.HTTPAddress).To(BeEmpty())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	RegisterTestingT(t)

	t.Setenv("PODTUNNEL_KUBECONFIG", "/root/.kube/config")
	t.Setenv("PODTUNNEL_RETRY_INTERVAL", "500ms")

	cfg, err := loadConfig(nil)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(cfg.Kubeconfig).To(Equal("/root/.kube/config"))
	Expect(cfg.RetryInterval.Duration).To(Equal(500 * time.Millisecond))
}

func TestLoadConfigInvalid(t *testing.T) {
	RegisterTestingT(t)

	_, err := loadConfig([]string{"-workers", "0"})
	Expect(err).To(HaveOccurred())

	_, err = loadConfig([]string{"-config-file", filepath.Join(t.TempDir(), "missing.yaml")})
	Expect(err).To(HaveOccurred())

	_, err = loadConfig([]string{"-config-file", writeConfigFile(t, "workers: [1, 2]\n")})
	Expect(err).To(HaveOccurred())

	_, err = loadConfig([]string{"-no-such-flag"})
	Expect(err).To(HaveOccurred())
}
