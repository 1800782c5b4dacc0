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

package provisioner_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/contiv/podtunnel/mock/dataplane"
	"github.com/contiv/podtunnel/mock/tunnelstore"
	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/keys"
	. "github.com/contiv/podtunnel/plugins/provisioner"
)

const (
	peerKeyA = "xTIBA5rboUvnH4htodjb6e697QjLERt1NAB4mZqp8Dg="
	peerKeyB = "TrMvSoP4jYQlY6RIzBgbssQqY3vxI2Pi+y71lOWWXX0="
	podNetns = "/var/run/netns/cni-1234"
)

var (
	logger = logrus.DefaultLogger()
	podIP  = net.ParseIP("172.16.0.5")
)

// hostAddress keeps the host part of a CIDR, unlike net.ParseCIDR's network.
func hostAddress(cidr string) *net.IPNet {
	ip, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	return &net.IPNet{IP: ip.To4(), Mask: network.Mask}
}

func testPeers() []v1alpha1.PeerConfig {
	return []v1alpha1.PeerConfig{
		{
			PublicKey:           peerKeyA,
			EndpointAddress:     "172.16.0.6",
			EndpointPort:        v1alpha1.Int32(51820),
			TunnelAddress:       "10.0.100.2",
			TunnelAddressPrefix: v1alpha1.Int32(24),
			AllowedIPs:          []string{"10.0.100.2/32", "172.16.0.6/32"},
			PersistentKeepalive: v1alpha1.Int32(25),
		},
		{
			PublicKey:       peerKeyB,
			EndpointAddress: "172.16.0.7",
			AllowedIPs:      []string{"10.0.100.3/32"},
		},
	}
}

type fixture struct {
	store     *tunnelstore.MockStore
	dataplane *dataplane.MockDataplane
	netns     *dataplane.MockNetNS
	keypair   *keys.Keypair
	prov      *Provisioner
}

// newFixture stores a config named pod-a whose status is ready apart from
// the pod address.
func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:     tunnelstore.NewMockStore(),
		dataplane: dataplane.NewMockDataplane(),
		netns:     &dataplane.MockNetNS{},
	}
	issuer := keys.NewIssuer(keys.Deps{Log: logger, Secrets: fake.NewSimpleClientset().CoreV1()})

	cfg := &v1alpha1.WireguardConfig{
		ObjectMeta: metav1.ObjectMeta{Name: "pod-a", Namespace: "default"},
		Spec: v1alpha1.WireguardConfigSpec{
			Interface: v1alpha1.WireguardInterface{ListenPort: v1alpha1.Int32(41000)},
			Peers: []v1alpha1.WireguardPeer{
				{Ref: &v1alpha1.ObjectReference{Name: "pod-b"}},
				{Ref: &v1alpha1.ObjectReference{Name: "pod-c"}},
			},
		},
	}
	var (
		ref v1alpha1.ObjectReference
		err error
	)
	f.keypair, ref, err = issuer.EnsureKey(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Status = v1alpha1.WireguardConfigStatus{
		TunnelAddress:       "10.0.100.1",
		TunnelAddressPrefix: v1alpha1.Int32(24),
		PrivateKey:          &ref,
		PublicKey:           f.keypair.PublicKey.String(),
	}
	f.store.AddConfig(cfg)

	f.prov = NewProvisioner(Deps{
		Log:   logger,
		Store: f.store,
		Keys:  issuer,
		NetNS: f.netns,
		NewDataplane: func() (Dataplane, error) {
			return f.dataplane, nil
		},
	})
	return f
}

func (f *fixture) makeReady() {
	_, err := f.store.PatchConfigStatus(context.Background(), "default", "pod-a", store.StatusPatch{
		"interfaceReady": true,
		"peers":          testPeers(),
	})
	Expect(err).ShouldNot(HaveOccurred())
}

func (f *fixture) request() Request {
	return Request{Namespace: "default", Name: "pod-a", Netns: podNetns, PodIP: podIP}
}

func TestConfigureInterface(t *testing.T) {
	RegisterTestingT(t)

	md := dataplane.NewMockDataplane()
	key, err := wgtypes.GeneratePrivateKey()
	Expect(err).ShouldNot(HaveOccurred())
	address := hostAddress("10.0.100.1/24")

	err = ConfigureInterface(md, InterfaceConfig{
		Address:    address,
		PrivateKey: key,
		ListenPort: 51820,
		Peers:      testPeers(),
	})
	Expect(err).ShouldNot(HaveOccurred())

	Expect(md.Ops).To(Equal([]string{
		dataplane.AddLink,
		dataplane.AddAddress,
		dataplane.SetPrivateKey,
		dataplane.SetListenPort,
		dataplane.SetLinkUp,
		dataplane.SetFirewallMark,
		dataplane.AddDefaultRoute,
		dataplane.SetPeer, dataplane.AddRule, dataplane.AddRule,
		dataplane.SetPeer, dataplane.AddRule, dataplane.AddRule,
		dataplane.AddRule,
	}))
	Expect(md.Links).To(HaveKeyWithValue(InterfaceName, true))
	Expect(md.Addresses).To(HaveLen(1))
	Expect(md.Addresses[0].String()).To(Equal("10.0.100.1/24"))
	Expect(md.FirewallMark).To(BeEquivalentTo(921481285))
	Expect(md.RouteTables).To(Equal([]int{129518285}))
	Expect(md.PrivateKey).To(Equal(key))

	// two rules per peer, then the suppress rule
	Expect(md.Rules).To(HaveLen(5))
	endpoint := &net.IPNet{IP: net.ParseIP("172.16.0.6").To4(), Mask: net.CIDRMask(32, 32)}
	Expect(md.Rules[0]).To(Equal(Rule{
		Dst: endpoint, Mark: FirewallMark, MatchMark: true, Table: MainTable, Priority: 1, SuppressPrefixlen: -1,
	}))
	Expect(md.Rules[1]).To(Equal(Rule{
		Dst: endpoint, Mark: 0, MatchMark: true, Table: RoutingTable, Priority: 2, SuppressPrefixlen: -1,
	}))
	Expect(md.Rules[2].Dst.IP.String()).To(Equal("172.16.0.7"))
	Expect(md.Rules[4]).To(Equal(Rule{Table: MainTable, Priority: 3, SuppressPrefixlen: 0}))
}

func TestConfigureInterfaceAbortsOnFailure(t *testing.T) {
	RegisterTestingT(t)

	md := dataplane.NewMockDataplane()
	md.FailOn[dataplane.SetPeer] = errors.New("no such device")
	address := hostAddress("10.0.100.1/24")

	err := ConfigureInterface(md, InterfaceConfig{Address: address, ListenPort: 51820, Peers: testPeers()})
	Expect(err).Should(HaveOccurred())
	Expect(md.Ops[len(md.Ops)-1]).To(Equal(dataplane.SetPeer))
	Expect(md.Rules).To(BeEmpty())
}

func TestPeerToWireguard(t *testing.T) {
	RegisterTestingT(t)

	peers := testPeers()
	wgPeer, endpoint, err := PeerToWireguard(&peers[0])
	Expect(err).ShouldNot(HaveOccurred())
	Expect(endpoint.String()).To(Equal("172.16.0.6:51820"))
	Expect(wgPeer.PublicKey.String()).To(Equal(peerKeyA))
	Expect(wgPeer.AllowedIPs).To(HaveLen(2))
	Expect(wgPeer.AllowedIPs[1].String()).To(Equal("172.16.0.6/32"))
	Expect(*wgPeer.PersistentKeepaliveInterval).To(Equal(25 * time.Second))

	// missing port falls back to the default listen port
	_, endpoint, err = PeerToWireguard(&peers[1])
	Expect(err).ShouldNot(HaveOccurred())
	Expect(endpoint.Port).To(Equal(51820))

	_, _, err = PeerToWireguard(&v1alpha1.PeerConfig{PublicKey: "bogus", EndpointAddress: "172.16.0.6"})
	Expect(err).Should(HaveOccurred())
	_, _, err = PeerToWireguard(&v1alpha1.PeerConfig{PublicKey: peerKeyA, EndpointAddress: "fd00::1"})
	Expect(err).Should(HaveOccurred())
}

func TestProvision(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	f.makeReady()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := f.prov.Provision(ctx, f.request())
	Expect(err).ShouldNot(HaveOccurred())
	Expect(res.Interface).To(Equal("wg0"))
	Expect(res.Address.String()).To(Equal("10.0.100.1/24"))

	Expect(f.store.Config("default", "pod-a").Status.PodAddress).To(Equal("172.16.0.5"))
	Expect(f.netns.Entered).To(Equal([]string{podNetns}))
	Expect(f.netns.Current).To(BeEmpty())
	Expect(f.dataplane.PrivateKey).To(Equal(f.keypair.PrivateKey))
	Expect(f.dataplane.ListenPort).To(Equal(41000))
	Expect(f.dataplane.Peers).To(HaveLen(2))
	Expect(f.dataplane.Closed).To(BeTrue())
}

func TestProvisionWaitsForReadiness(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	// the first publish attempt loses a race
	f.store.PatchErrors = []error{
		apierrors.NewConflict(v1alpha1.Resource(v1alpha1.CRDWireguardConfigPlural), "pod-a", errors.New("stale")),
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := f.prov.Provision(ctx, f.request())
		done <- outcome{res, err}
	}()

	Eventually(func() string {
		return f.store.Config("default", "pod-a").Status.PodAddress
	}, 3*time.Second).Should(Equal("172.16.0.5"))
	Consistently(done, 200*time.Millisecond).ShouldNot(Receive())

	f.makeReady()

	var result outcome
	Eventually(done, 5*time.Second).Should(Receive(&result))
	Expect(result.err).ShouldNot(HaveOccurred())
	Expect(result.res.Address.String()).To(Equal("10.0.100.1/24"))
}

func TestProvisionWaitsForPeers(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	// ready but the peers of the spec are not resolved yet
	_, err := f.store.PatchConfigStatus(context.Background(), "default", "pod-a", store.StatusPatch{
		"interfaceReady": true,
	})
	Expect(err).ShouldNot(HaveOccurred())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = f.prov.Provision(ctx, f.request())
	Expect(errors.Is(err, ErrProvisioningTimedOut)).To(BeTrue())
	Expect(f.netns.Entered).To(BeEmpty())
}

func TestProvisionIgnoresIncompleteReadyStatus(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	// interfaceReady set without a key reference
	cfg := f.store.Config("default", "pod-a")
	cfg.Status.PrivateKey = nil
	cfg.Status.InterfaceReady = true
	cfg.Status.Peers = testPeers()
	f.store.AddConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := f.prov.Provision(ctx, f.request())
	Expect(errors.Is(err, ErrProvisioningTimedOut)).To(BeTrue())
	Expect(f.netns.Entered).To(BeEmpty())
}

func TestProvisionTimesOut(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.prov.Provision(ctx, f.request())
	Expect(errors.Is(err, ErrProvisioningTimedOut)).To(BeTrue())
	Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
	Expect(f.dataplane.Ops).To(BeEmpty())
}

func TestProvisionWithoutConfig(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	res, err := f.prov.Provision(context.Background(), Request{
		Namespace: "default", Name: "no-tunnel", Netns: podNetns, PodIP: podIP,
	})
	Expect(err).ShouldNot(HaveOccurred())
	Expect(res).To(BeNil())
	Expect(f.store.ConfigPatches).To(BeZero())
}

func TestProvisionRestoresNamespaceOnFailure(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	f.makeReady()
	f.dataplane.FailOn[dataplane.SetPeer] = errors.New("invalid argument")

	_, err := f.prov.Provision(context.Background(), f.request())
	Expect(err).Should(HaveOccurred())
	Expect(f.netns.Entered).To(Equal([]string{podNetns}))
	Expect(f.netns.Current).To(BeEmpty())
	Expect(f.dataplane.Closed).To(BeTrue())
}

func TestProvisionNamespaceSwitchFailure(t *testing.T) {
	RegisterTestingT(t)

	f := newFixture(t)
	f.makeReady()
	f.netns.EnterErr = errors.Wrap(ErrNamespaceSwitch, podNetns)

	_, err := f.prov.Provision(context.Background(), f.request())
	Expect(errors.Is(err, ErrNamespaceSwitch)).To(BeTrue())
	Expect(f.dataplane.Ops).To(BeEmpty())
}

func TestNetNSMissingPath(t *testing.T) {
	RegisterTestingT(t)

	called := false
	err := NewNetNS().Do("/var/run/netns/does-not-exist", func() error {
		called = true
		return nil
	})
	Expect(errors.Is(err, ErrNamespaceSwitch)).To(BeTrue())
	Expect(called).To(BeFalse())
}
