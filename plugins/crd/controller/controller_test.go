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

package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	apiextfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/dynamicinformer"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sCache "k8s.io/client-go/tools/cache"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/reconciler"
	"github.com/contiv/podtunnel/plugins/statscollector"
)

var logger = logrus.DefaultLogger()

// recordingStage returns the queued results in order, then success.
type recordingStage struct {
	sync.Mutex
	calls   []string
	results []reconciler.Result
	errs    []error
}

func (s *recordingStage) Name() string {
	return "recording"
}

func (s *recordingStage) Reconcile(ctx context.Context, cfg *v1alpha1.WireguardConfig) (reconciler.Result, error) {
	s.Lock()
	defer s.Unlock()
	s.calls = append(s.calls, cfg.Reference().String())
	var (
		res reconciler.Result
		err error
	)
	if len(s.results) > 0 {
		res, s.results = s.results[0], s.results[1:]
	}
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	return res, err
}

func (s *recordingStage) callCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.calls)
}

type recordingStats struct {
	sync.Mutex
	outcomes []statscollector.Outcome
}

func (r *recordingStats) RecordReconcile(stage string, outcome statscollector.Outcome) {
	r.Lock()
	defer r.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newConfig(name string) *v1alpha1.WireguardConfig {
	return &v1alpha1.WireguardConfig{
		ObjectMeta: meta.ObjectMeta{Name: name, Namespace: "default"},
	}
}

func newIndexerInformer(objs ...runtime.Object) k8sCache.SharedIndexInformer {
	client := newDynamicClient()
	informer := dynamicinformer.NewFilteredDynamicInformer(client, v1alpha1.WireguardConfigResource,
		"", 0, k8sCache.Indexers{}, nil).Informer()
	for _, obj := range objs {
		u, err := store.ToUnstructured(obj)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(informer.GetIndexer().Add(u)).To(Succeed())
	}
	return informer
}

func newDynamicClient(objs ...runtime.Object) *dynamicfake.FakeDynamicClient {
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			v1alpha1.WireguardConfigResource:      "WireguardConfigList",
			v1alpha1.WireguardAddressPoolResource: "WireguardAddressPoolList",
		}, objs...)
}

func TestProcessItem(t *testing.T) {
	RegisterTestingT(t)

	stage := &recordingStage{}
	stats := &recordingStats{}
	c := NewStageController(Deps{
		Log:      logger,
		Informer: newIndexerInformer(newConfig("pod-a")),
		Stage:    stage,
		Stats:    stats,
	})

	c.queue.Add("default/pod-a")
	Expect(c.processNextItem(context.Background())).To(BeTrue())
	Expect(stage.calls).To(Equal([]string{"default/pod-a"}))
	Expect(stats.outcomes).To(Equal([]statscollector.Outcome{statscollector.OutcomeSuccess}))
	Expect(c.queue.Len()).To(BeZero())

	// deleted configs are not reconciled
	c.queue.Add("default/gone")
	Expect(c.processNextItem(context.Background())).To(BeTrue())
	Expect(stage.calls).To(HaveLen(1))

	c.queue.ShutDown()
	Expect(c.processNextItem(context.Background())).To(BeFalse())
}

func TestProcessItemRetries(t *testing.T) {
	RegisterTestingT(t)

	stage := &recordingStage{
		results: []reconciler.Result{{}, {Requeue: true}},
		errs:    []error{errors.New("store unavailable")},
	}
	stats := &recordingStats{}
	c := NewStageController(Deps{
		Log:           logger,
		Informer:      newIndexerInformer(newConfig("pod-a")),
		Stage:         stage,
		Stats:         stats,
		RetryInterval: 10 * time.Millisecond,
	})
	ctx := context.Background()

	c.queue.Add("default/pod-a")
	Expect(c.processNextItem(ctx)).To(BeTrue())
	Eventually(c.queue.Len).Should(Equal(1))

	Expect(c.processNextItem(ctx)).To(BeTrue())
	Eventually(c.queue.Len).Should(Equal(1))

	Expect(c.processNextItem(ctx)).To(BeTrue())
	Consistently(c.queue.Len, 50*time.Millisecond).Should(BeZero())

	Expect(stage.callCount()).To(Equal(3))
	Expect(stats.outcomes).To(Equal([]statscollector.Outcome{
		statscollector.OutcomeError,
		statscollector.OutcomeRequeue,
		statscollector.OutcomeSuccess,
	}))
}

func TestRun(t *testing.T) {
	RegisterTestingT(t)

	a, err := store.ToUnstructured(newConfig("pod-a"))
	Expect(err).ShouldNot(HaveOccurred())
	client := newDynamicClient(a)
	informer := dynamicinformer.NewFilteredDynamicInformer(client, v1alpha1.WireguardConfigResource,
		"", 0, k8sCache.Indexers{}, nil).Informer()

	stage := &recordingStage{}
	c := NewStageController(Deps{Log: logger, Informer: informer, Stage: stage, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	Eventually(c.HasSynced).Should(BeTrue())
	Eventually(stage.callCount).Should(Equal(1))

	// status updates trigger another run
	b, err := store.ToUnstructured(newConfig("pod-b"))
	Expect(err).ShouldNot(HaveOccurred())
	_, err = client.Resource(v1alpha1.WireguardConfigResource).Namespace("default").
		Create(ctx, b, meta.CreateOptions{})
	Expect(err).ShouldNot(HaveOccurred())
	Eventually(stage.callCount).Should(Equal(2))
}

func TestRegisterCRDs(t *testing.T) {
	RegisterTestingT(t)

	client := apiextfake.NewSimpleClientset()
	ctx := context.Background()

	Expect(RegisterCRDs(ctx, client, logger)).To(Succeed())
	// already registered definitions are left alone
	Expect(RegisterCRDs(ctx, client, logger)).To(Succeed())

	crds, err := client.ApiextensionsV1().CustomResourceDefinitions().List(ctx, meta.ListOptions{})
	Expect(err).ShouldNot(HaveOccurred())
	Expect(crds.Items).To(HaveLen(2))

	crd, err := client.ApiextensionsV1().CustomResourceDefinitions().
		Get(ctx, "wireguardconfigs.podtunnel.com", meta.GetOptions{})
	Expect(err).ShouldNot(HaveOccurred())
	Expect(crd.Spec.Group).To(Equal("podtunnel.com"))
	Expect(crd.Spec.Names.Kind).To(Equal("WireguardConfig"))
	Expect(crd.Spec.Versions).To(HaveLen(1))
	Expect(crd.Spec.Versions[0].Name).To(Equal("v1alpha1"))
	Expect(crd.Spec.Versions[0].Subresources.Status).ToNot(BeNil())
}
