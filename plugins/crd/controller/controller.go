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
	"fmt"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	k8sCache "k8s.io/client-go/tools/cache"
	"k8s.io/client-go/util/workqueue"

	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/reconciler"
	"github.com/contiv/podtunnel/plugins/statscollector"
)

// DefaultRetryInterval is the delay before a failed or unfinished
// reconciliation is retried.
const DefaultRetryInterval = time.Second

// StageController watches WireguardConfigs and runs one reconciliation
// stage for every change. Failed and unfinished runs are retried after
// RetryInterval.
type StageController struct {
	Deps

	queue workqueue.RateLimitingInterface
}

// Deps defines dependencies of the StageController.
type Deps struct {
	Log      logging.Logger
	Informer k8sCache.SharedIndexInformer
	Stage    reconciler.Stage

	// Stats is optional.
	Stats statscollector.API

	RetryInterval time.Duration
	Workers       int
}

// NewStageController creates a controller and subscribes it to the informer.
func NewStageController(deps Deps) *StageController {
	if deps.RetryInterval == 0 {
		deps.RetryInterval = DefaultRetryInterval
	}
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	c := &StageController{
		Deps:  deps,
		queue: workqueue.NewNamedRateLimitingQueue(workqueue.DefaultControllerRateLimiter(), deps.Stage.Name()),
	}

	c.Informer.AddEventHandler(k8sCache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			c.enqueue(obj)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			c.enqueue(newObj)
		},
		// deleted configs need no reconciliation, owned secrets are
		// garbage collected and pool entries are kept
	})
	return c
}

func (c *StageController) enqueue(obj interface{}) {
	key, err := k8sCache.MetaNamespaceKeyFunc(obj)
	if err != nil {
		utilruntime.HandleError(err)
		return
	}
	c.queue.Add(key)
}

// Run starts the informer and the workers; it blocks until ctx is done.
func (c *StageController) Run(ctx context.Context) {
	// handle a panic with logging and exiting
	defer utilruntime.HandleCrash()
	// ignore new items and shutdown when done
	defer c.queue.ShutDown()

	c.Log.Infof("%s-Controller: Starting...", c.Stage.Name())

	go c.Informer.Run(ctx.Done())

	if !k8sCache.WaitForCacheSync(ctx.Done(), c.Informer.HasSynced) {
		utilruntime.HandleError(fmt.Errorf("%s-Controller: error syncing cache", c.Stage.Name()))
		return
	}
	c.Log.Infof("%s-Controller: cache sync complete", c.Stage.Name())

	for i := 0; i < c.Workers; i++ {
		go wait.Until(func() { c.runWorker(ctx) }, time.Second, ctx.Done())
	}
	<-ctx.Done()
	c.Log.Infof("%s-Controller: Stopping", c.Stage.Name())
}

// HasSynced indicates when the controller is synced up with the K8s.
func (c *StageController) HasSynced() bool {
	return c.Informer.HasSynced()
}

func (c *StageController) runWorker(ctx context.Context) {
	for c.processNextItem(ctx) {
	}
}

// processNextItem runs the stage for the next queued key.
func (c *StageController) processNextItem(ctx context.Context) bool {
	key, quit := c.queue.Get()
	if quit {
		return false
	}
	defer c.queue.Done(key)

	requeue, err := c.processItem(ctx, key.(string))
	switch {
	case err != nil:
		c.Log.WithFields(logging.Fields{
			"stage":  c.Stage.Name(),
			"config": key,
		}).Warnf("Reconcile failed, retrying in %v: %v", c.RetryInterval, err)
		c.record(statscollector.OutcomeError)
		c.queue.AddAfter(key, c.RetryInterval)
	case requeue:
		c.record(statscollector.OutcomeRequeue)
		c.queue.AddAfter(key, c.RetryInterval)
	default:
		c.record(statscollector.OutcomeSuccess)
		c.queue.Forget(key)
	}
	return true
}

// processItem reconciles the cached version of the config behind key.
func (c *StageController) processItem(ctx context.Context, key string) (requeue bool, err error) {
	item, exists, err := c.Informer.GetIndexer().GetByKey(key)
	if err != nil {
		return false, errors.Wrapf(err, "lookup %s", key)
	}
	if !exists {
		c.Log.Debugf("%s-Controller: %s was deleted", c.Stage.Name(), key)
		return false, nil
	}
	u, ok := item.(*unstructured.Unstructured)
	if !ok {
		return false, errors.Errorf("unexpected object %T for %s", item, key)
	}
	cfg, err := store.ConfigFromUnstructured(u)
	if err != nil {
		return false, err
	}

	res, err := c.Stage.Reconcile(ctx, cfg)
	return res.Requeue, err
}

func (c *StageController) record(outcome statscollector.Outcome) {
	if c.Stats != nil {
		c.Stats.RecordReconcile(c.Stage.Name(), outcome)
	}
}
