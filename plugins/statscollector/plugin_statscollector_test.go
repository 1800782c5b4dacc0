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

package statscollector

import (
	"context"
	"testing"

	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/contiv/podtunnel/mock/tunnelstore"
	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

type CollectorTestVars struct {
	plugin   *Plugin
	registry *prometheus.Registry
	store    *tunnelstore.MockStore
}

var testVars CollectorTestVars

// TestStatsCollector tests the statistics collector
func TestStatsCollector(t *testing.T) {
	gomega.RegisterTestingT(t)

	testVars.registry = prometheus.NewRegistry()
	testVars.store = tunnelstore.NewMockStore()
	testVars.plugin = &Plugin{
		Deps: Deps{
			Log:        logrus.DefaultLogger(),
			Store:      testVars.store,
			Registerer: testVars.registry,
		},
	}

	err := testVars.plugin.Init()
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(testVars.plugin.gaugeVecs).To(gomega.HaveLen(3))

	// a second collector cannot register the same metrics
	duplicate := &Plugin{Deps: Deps{Log: logrus.DefaultLogger(), Registerer: testVars.registry}}
	gomega.Expect(duplicate.Init()).ToNot(gomega.Succeed())

	t.Run("testRecordReconcile", testRecordReconcile)
	t.Run("testUpdatePoolStats", testUpdatePoolStats)
	t.Run("testUpdateConfigStats", testUpdateConfigStats)
	t.Run("testDeletedPool", testDeletedPool)

	gomega.Expect(testVars.plugin.Close()).To(gomega.Succeed())
}

func testRecordReconcile(t *testing.T) {
	gomega.RegisterTestingT(t)

	testVars.plugin.RecordReconcile("address", OutcomeSuccess)
	testVars.plugin.RecordReconcile("address", OutcomeSuccess)
	testVars.plugin.RecordReconcile("peer", OutcomeError)

	counter := testVars.plugin.reconcile
	gomega.Expect(testutil.ToFloat64(counter.WithLabelValues("address", "success"))).To(gomega.Equal(2.0))
	gomega.Expect(testutil.ToFloat64(counter.WithLabelValues("peer", "error"))).To(gomega.Equal(1.0))
	gomega.Expect(testutil.ToFloat64(counter.WithLabelValues("peer", "success"))).To(gomega.Equal(0.0))
}

func testUpdatePoolStats(t *testing.T) {
	gomega.RegisterTestingT(t)

	testVars.store.AddPool(&v1alpha1.WireguardAddressPool{
		ObjectMeta: metav1.ObjectMeta{Name: "tunnels", Namespace: "default"},
		Spec:       v1alpha1.WireguardAddressPoolSpec{Network: "10.0.100.0/29"},
		Status: v1alpha1.WireguardAddressPoolStatus{Allocation: map[string]string{
			"default/a": "10.0.100.1",
			"default/b": "10.0.100.2",
		}},
	})
	testVars.store.AddPool(&v1alpha1.WireguardAddressPool{
		ObjectMeta: metav1.ObjectMeta{Name: "broken", Namespace: "default"},
		Spec:       v1alpha1.WireguardAddressPoolSpec{Network: "fd00::/64"},
	})

	err := testVars.plugin.UpdateStats(context.Background())
	gomega.Expect(err).To(gomega.BeNil())

	usable := testVars.plugin.gaugeVecs[poolUsableMetric]
	allocated := testVars.plugin.gaugeVecs[poolAllocatedMetric]
	gomega.Expect(testutil.ToFloat64(usable.WithLabelValues("default/tunnels"))).To(gomega.Equal(6.0))
	gomega.Expect(testutil.ToFloat64(allocated.WithLabelValues("default/tunnels"))).To(gomega.Equal(2.0))

	// pools with an invalid network are skipped
	gomega.Expect(testutil.CollectAndCount(usable)).To(gomega.Equal(1))
}

func testUpdateConfigStats(t *testing.T) {
	gomega.RegisterTestingT(t)

	testVars.store.AddConfig(&v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "a", Namespace: "default"},
		Status:     v1alpha1.WireguardConfigStatus{InterfaceReady: true},
	})
	testVars.store.AddConfig(&v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "b", Namespace: "default"},
		Status:     v1alpha1.WireguardConfigStatus{TunnelAddress: "10.0.100.2"},
	})
	testVars.store.AddConfig(&v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "c", Namespace: "default"},
	})

	err := testVars.plugin.UpdateStats(context.Background())
	gomega.Expect(err).To(gomega.BeNil())

	families, err := testVars.registry.Gather()
	gomega.Expect(err).To(gomega.BeNil())

	perPhase := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "podtunnel_configs" {
			continue
		}
		gomega.Expect(family.GetType()).To(gomega.Equal(dto.MetricType_GAUGE))
		for _, metric := range family.GetMetric() {
			perPhase[labelValue(metric, phaseLabel)] = metric.GetGauge().GetValue()
		}
	}
	gomega.Expect(perPhase).To(gomega.Equal(map[string]float64{
		"Empty":           1,
		"AddressAssigned": 1,
		"KeyAssigned":     0,
		"PeersResolved":   0,
		"Ready":           1,
	}))
}

func testDeletedPool(t *testing.T) {
	gomega.RegisterTestingT(t)

	testVars.plugin.gaugeVecs[poolUsableMetric].WithLabelValues("default/deleted").Set(10)

	err := testVars.plugin.UpdateStats(context.Background())
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(testutil.CollectAndCount(testVars.plugin.gaugeVecs[poolUsableMetric])).To(gomega.Equal(1))
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
