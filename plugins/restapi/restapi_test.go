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

package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/contiv/podtunnel/mock/tunnelstore"
	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

func newTestServer() (*Server, *tunnelstore.MockStore) {
	ms := tunnelstore.NewMockStore()
	ms.AddPool(&v1alpha1.WireguardAddressPool{
		ObjectMeta: metav1.ObjectMeta{Name: "tunnels", Namespace: "default"},
		Spec:       v1alpha1.WireguardAddressPoolSpec{Network: "192.168.7.8/29"},
		Status: v1alpha1.WireguardAddressPoolStatus{Allocation: map[string]string{
			"default/pod-a": "192.168.7.9",
		}},
	})
	ms.AddPool(&v1alpha1.WireguardAddressPool{
		ObjectMeta: metav1.ObjectMeta{Name: "broken", Namespace: "default"},
		Spec:       v1alpha1.WireguardAddressPoolSpec{Network: "fd00::/64"},
	})
	ms.AddConfig(&v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "pod-a", Namespace: "default"},
		Spec: v1alpha1.WireguardConfigSpec{
			Peers: []v1alpha1.WireguardPeer{{Ref: &v1alpha1.ObjectReference{Name: "pod-b"}}},
		},
		Status: v1alpha1.WireguardConfigStatus{
			PodAddress:          "10.1.0.7",
			TunnelAddress:       "192.168.7.9",
			TunnelAddressPrefix: v1alpha1.Int32(29),
			PrivateKey:          &v1alpha1.ObjectReference{Name: "pod-a", Namespace: "default"},
			PublicKey:           "cHVibGlj",
			InterfaceReady:      true,
		},
	})
	ms.AddConfig(&v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "pod-b", Namespace: "default"},
	})

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "podtunnel_test_total", Help: "test"})
	counter.Inc()
	registry := prometheus.NewRegistry()
	registry.MustRegister(counter)

	return NewServer(Deps{Log: logrus.DefaultLogger(), Store: ms, Gatherer: registry}), ms
}

func get(handler http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestPoolsGet(t *testing.T) {
	RegisterTestingT(t)

	server, _ := newTestServer()
	rec := get(server.Handler(), RestURLPools)
	Expect(rec.Code).To(Equal(http.StatusOK))

	var pools []PoolInfo
	Expect(json.Unmarshal(rec.Body.Bytes(), &pools)).To(Succeed())
	Expect(pools).To(HaveLen(2))

	Expect(pools[0].Pool).To(Equal("default/broken"))
	Expect(pools[0].Error).ToNot(BeEmpty())

	Expect(pools[1].Pool).To(Equal("default/tunnels"))
	Expect(pools[1].Network).To(Equal("192.168.7.8/29"))
	Expect(pools[1].Usable).To(BeEquivalentTo(6))
	Expect(pools[1].Allocated).To(Equal(1))
	Expect(pools[1].Allocation).To(HaveKeyWithValue("default/pod-a", "192.168.7.9"))
}

func TestTunnelsGet(t *testing.T) {
	RegisterTestingT(t)

	server, _ := newTestServer()
	rec := get(server.Handler(), RestURLTunnels+"?namespace=default")
	Expect(rec.Code).To(Equal(http.StatusOK))

	var tunnels []TunnelInfo
	Expect(json.Unmarshal(rec.Body.Bytes(), &tunnels)).To(Succeed())
	Expect(tunnels).To(HaveLen(2))
	Expect(tunnels[0].Config).To(Equal("default/pod-a"))
	Expect(tunnels[1].Config).To(Equal("default/pod-b"))
	Expect(tunnels[1].Phase).To(Equal(v1alpha1.PhaseEmpty))

	rec = get(server.Handler(), RestURLTunnels+"?namespace=other")
	Expect(rec.Code).To(Equal(http.StatusOK))
	Expect(json.Unmarshal(rec.Body.Bytes(), &tunnels)).To(Succeed())
	Expect(tunnels).To(BeEmpty())
}

func TestTunnelGet(t *testing.T) {
	RegisterTestingT(t)

	server, _ := newTestServer()
	rec := get(server.Handler(), RestURLTunnels+"/default/pod-a")
	Expect(rec.Code).To(Equal(http.StatusOK))

	var tunnel TunnelInfo
	Expect(json.Unmarshal(rec.Body.Bytes(), &tunnel)).To(Succeed())
	Expect(tunnel.Phase).To(Equal(v1alpha1.PhaseReady))
	Expect(tunnel.TunnelAddress).To(Equal("192.168.7.9/29"))
	Expect(tunnel.ListenPort).To(BeEquivalentTo(v1alpha1.DefaultListenPort))
	Expect(tunnel.RequestedPeers).To(Equal(1))
	Expect(tunnel.InterfaceReady).To(BeTrue())
	// ready, but the requested peer is not resolved yet
	Expect(tunnel.Provisionable).To(BeFalse())

	rec = get(server.Handler(), RestURLTunnels+"/default/missing")
	Expect(rec.Code).To(Equal(http.StatusNotFound))
}

func TestMetricsGet(t *testing.T) {
	RegisterTestingT(t)

	server, _ := newTestServer()
	rec := get(server.Handler(), RestURLMetrics)
	Expect(rec.Code).To(Equal(http.StatusOK))
	Expect(strings.Contains(rec.Body.String(), "podtunnel_test_total 1")).To(BeTrue())

	server.Gatherer = nil
	rec = get(server.Handler(), RestURLMetrics)
	Expect(rec.Code).To(Equal(http.StatusNotFound))
}
