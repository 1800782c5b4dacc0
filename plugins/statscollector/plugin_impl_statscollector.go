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
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/crd/store"
	"github.com/contiv/podtunnel/plugins/ipam"
)

const (
	metricsNamespace = "podtunnel"

	poolLabel    = "pool"
	phaseLabel   = "phase"
	stageLabel   = "stage"
	outcomeLabel = "outcome"

	poolUsableMetric    = "pool_usable_addresses"
	poolAllocatedMetric = "pool_allocated_addresses"
	configsMetric       = "configs"
	reconcileMetric     = "reconcile_total"

	defaultUpdateInterval = 10 * time.Second
)

var phases = []v1alpha1.Phase{
	v1alpha1.PhaseEmpty,
	v1alpha1.PhaseAddressAssigned,
	v1alpha1.PhaseKeyAssigned,
	v1alpha1.PhasePeersResolved,
	v1alpha1.PhaseReady,
}

// Plugin publishes address pool utilisation, config phases and stage
// outcomes to prometheus.
type Plugin struct {
	Deps
	sync.Mutex

	closeCh   chan struct{}
	gaugeVecs map[string]*prometheus.GaugeVec
	reconcile *prometheus.CounterVec
}

// Deps groups the dependencies of the Plugin.
type Deps struct {
	Log   logging.Logger
	Store store.Store

	// Registerer receives the metrics, prometheus.DefaultRegisterer when nil.
	Registerer prometheus.Registerer

	// UpdateInterval is the period of pool and config gauge refresh.
	UpdateInterval time.Duration
}

var _ API = (*Plugin)(nil)

// Init creates and registers the metric vectors.
func (p *Plugin) Init() error {
	p.closeCh = make(chan struct{})
	p.gaugeVecs = map[string]*prometheus.GaugeVec{}
	if p.Registerer == nil {
		p.Registerer = prometheus.DefaultRegisterer
	}
	if p.UpdateInterval == 0 {
		p.UpdateInterval = defaultUpdateInterval
	}

	for _, statItem := range []struct {
		name, help string
		label      string
	}{
		{poolUsableMetric, "Number of host addresses the pool can hand out", poolLabel},
		{poolAllocatedMetric, "Number of addresses allocated from the pool", poolLabel},
		{configsMetric, "Number of WireguardConfigs per phase", phaseLabel},
	} {
		p.gaugeVecs[statItem.name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      statItem.name,
			Help:      statItem.help,
		}, []string{statItem.label})
	}
	p.reconcile = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      reconcileMetric,
		Help:      "Number of reconcile runs per stage and outcome",
	}, []string{stageLabel, outcomeLabel})

	for name, metric := range p.gaugeVecs {
		if err := p.Registerer.Register(metric); err != nil {
			p.Log.Errorf("failed to register %v metric %v", name, err)
			return err
		}
	}
	if err := p.Registerer.Register(p.reconcile); err != nil {
		p.Log.Errorf("failed to register %v metric %v", reconcileMetric, err)
		return err
	}
	return nil
}

// Start refreshes the gauges periodically until Close is called.
func (p *Plugin) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-p.closeCh:
				p.Log.Info("Closing")
				return
			case <-ctx.Done():
				return
			case <-time.After(p.UpdateInterval):
				if err := p.UpdateStats(ctx); err != nil {
					p.Log.Warnf("Failed to update statistics: %v", err)
				}
			}
		}
	}()
}

// Close stops the periodic refresh.
func (p *Plugin) Close() error {
	close(p.closeCh)
	return nil
}

// RecordReconcile implements API.
func (p *Plugin) RecordReconcile(stage string, outcome Outcome) {
	p.reconcile.With(prometheus.Labels{stageLabel: stage, outcomeLabel: string(outcome)}).Inc()
}

// UpdateStats reads all pools and configs and updates the gauges.
func (p *Plugin) UpdateStats(ctx context.Context) error {
	pools, err := p.Store.ListPools(ctx, "")
	if err != nil {
		return err
	}
	configs, err := p.Store.ListConfigs(ctx, "")
	if err != nil {
		return err
	}

	p.Lock()
	defer p.Unlock()

	usable := p.gaugeVecs[poolUsableMetric]
	allocated := p.gaugeVecs[poolAllocatedMetric]
	// pools may have been deleted since the last update
	usable.Reset()
	allocated.Reset()
	for i := range pools {
		pool := &pools[i]
		name := pool.Namespace + "/" + pool.Name
		size, err := ipam.Usable(pool)
		if err != nil {
			p.Log.WithField(poolLabel, name).Warn(err)
			continue
		}
		usable.With(prometheus.Labels{poolLabel: name}).Set(float64(size))
		allocated.With(prometheus.Labels{poolLabel: name}).Set(float64(len(pool.Status.Allocation)))
	}

	perPhase := make(map[v1alpha1.Phase]int, len(phases))
	for i := range configs {
		perPhase[configs[i].Phase()]++
	}
	for _, phase := range phases {
		p.gaugeVecs[configsMetric].With(prometheus.Labels{phaseLabel: string(phase)}).Set(float64(perPhase[phase]))
	}
	return nil
}
