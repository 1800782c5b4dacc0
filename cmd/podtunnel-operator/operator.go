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
	"net/http"
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/prometheus/client_golang/prometheus"
	apiextcs "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	k8sCache "k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/contiv/podtunnel/plugins/crd/controller"
	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/ipam"
	"github.com/contiv/podtunnel/plugins/keys"
	"github.com/contiv/podtunnel/plugins/reconciler"
	"github.com/contiv/podtunnel/plugins/restapi"
	"github.com/contiv/podtunnel/plugins/statscollector"
)

const (
	operatorName    = "podtunnel-operator"
	shutdownTimeout = 5 * time.Second
)

// clients bundles the API clients used by the operator.
type clients struct {
	dynamic dynamic.Interface
	kube    kubernetes.Interface
	apiext  apiextcs.Interface
}

func newClients(kubeconfig string) (*clients, error) {
	var (
		restConfig *rest.Config
		err        error
	)
	if kubeconfig == "" {
		restConfig, err = rest.InClusterConfig()
	} else {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, err
	}

	c := &clients{}
	if c.dynamic, err = dynamic.NewForConfig(restConfig); err != nil {
		return nil, err
	}
	if c.kube, err = kubernetes.NewForConfig(restConfig); err != nil {
		return nil, err
	}
	if c.apiext, err = apiextcs.NewForConfig(restConfig); err != nil {
		return nil, err
	}
	return c, nil
}

// Operator runs one controller per reconcile stage together with the
// statistics collector and the REST endpoint.
type Operator struct {
	config  *Config
	log     logging.Logger
	clients *clients

	controllers []*controller.StageController
	stats       *statscollector.Plugin
	server      *restapi.Server
}

// newLogger creates a named logger with the configured level.
func newLogger(name, level string) logging.Logger {
	logger := logrus.NewLogger(name)
	logger.SetLevel(logging.ParseLogLevel(level))
	return logger
}

func newOperator(config *Config, log logging.Logger, c *clients, registry prometheus.Registerer,
	gatherer prometheus.Gatherer) (*Operator, error) {

	tunnelStore := store.NewKubeStore(c.dynamic)
	stageLog := func(stage string) logging.Logger {
		return newLogger(operatorName+"-"+stage, config.LogLevel)
	}

	o := &Operator{
		config:  config,
		log:     log,
		clients: c,
		stats: &statscollector.Plugin{Deps: statscollector.Deps{
			Log:            stageLog("stats"),
			Store:          tunnelStore,
			Registerer:     registry,
			UpdateInterval: config.StatsInterval.Duration,
		}},
		server: restapi.NewServer(restapi.Deps{
			Log:      stageLog("rest"),
			Store:    tunnelStore,
			Gatherer: gatherer,
		}),
	}
	if err := o.stats.Init(); err != nil {
		return nil, err
	}

	stages := []reconciler.Stage{
		reconciler.NewAddressStage(reconciler.AddressDeps{
			Log:   stageLog(reconciler.AddressStageName),
			Store: tunnelStore,
			Allocator: ipam.NewAllocator(ipam.Deps{
				Log:   stageLog("ipam"),
				Store: tunnelStore,
			}),
		}),
		reconciler.NewKeyStage(reconciler.KeyDeps{
			Log:   stageLog(reconciler.KeyStageName),
			Store: tunnelStore,
			Keys: keys.NewIssuer(keys.Deps{
				Log:     stageLog("keys"),
				Secrets: c.kube.CoreV1(),
			}),
		}),
		reconciler.NewPeerStage(reconciler.PeerDeps{
			Log:   stageLog(reconciler.PeerStageName),
			Store: tunnelStore,
		}),
		reconciler.NewInterfaceGate(reconciler.GateDeps{
			Log:   stageLog(reconciler.GateStageName),
			Store: tunnelStore,
		}),
	}
	for _, stage := range stages {
		// every stage watches through its own informer
		informer := dynamicinformer.NewFilteredDynamicInformer(c.dynamic, v1alpha1.WireguardConfigResource,
			config.Namespace, config.ResyncPeriod.Duration,
			k8sCache.Indexers{k8sCache.NamespaceIndex: k8sCache.MetaNamespaceIndexFunc}, nil)

		o.controllers = append(o.controllers, controller.NewStageController(controller.Deps{
			Log:           stageLog(stage.Name() + "-controller"),
			Informer:      informer.Informer(),
			Stage:         stage,
			Stats:         o.stats,
			RetryInterval: config.RetryInterval.Duration,
			Workers:       config.Workers,
		}))
	}
	return o, nil
}

// Run registers the CRDs and runs the controllers until ctx is done.
func (o *Operator) Run(ctx context.Context) error {
	if o.config.RegisterCRDs {
		if err := controller.RegisterCRDs(ctx, o.clients.apiext, o.log); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	for _, c := range o.controllers {
		wg.Add(1)
		go func(c *controller.StageController) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}

	o.stats.Start(ctx)
	defer o.stats.Close()

	if o.config.HTTPAddress != "" {
		server := &http.Server{Addr: o.config.HTTPAddress, Handler: o.server.Handler()}
		go func() {
			o.log.Infof("Serving REST API and metrics on %s", o.config.HTTPAddress)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				o.log.Errorf("HTTP server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	o.log.Infof("%s started with %d stage controllers", operatorName, len(o.controllers))
	<-ctx.Done()
	wg.Wait()
	o.log.Info("All controllers stopped")
	return nil
}
