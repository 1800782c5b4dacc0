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
	"time"

	"github.com/ghodss/yaml"
	"github.com/namsral/flag"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/contiv/podtunnel/plugins/crd/controller"
)

const (
	// envPrefix prefixes the environment variables backing the flags,
	// e.g. PODTUNNEL_KUBECONFIG.
	envPrefix = "PODTUNNEL"

	defaultHTTPAddress   = ":9191"
	defaultLogLevel      = "info"
	defaultResyncPeriod  = 10 * time.Minute
	defaultStatsInterval = 30 * time.Second
)

// Config groups configurable parameters of the operator. Values come from
// the optional YAML file and are overridden by flags and their environment
// variables.
type Config struct {
	// Kubeconfig is the path of the kubeconfig, in-cluster config when empty.
	Kubeconfig string `json:"kubeconfig"`
	// Namespace restricts the watched configs, all namespaces when empty.
	Namespace string `json:"namespace"`
	// HTTPAddress is where metrics and the REST API are served, disabled when empty.
	HTTPAddress string `json:"httpAddress"`
	LogLevel    string `json:"logLevel"`

	// Workers is the number of workers per stage.
	Workers       int             `json:"workers"`
	RetryInterval metav1.Duration `json:"retryInterval"`
	ResyncPeriod  metav1.Duration `json:"resyncPeriod"`
	StatsInterval metav1.Duration `json:"statsInterval"`

	// RegisterCRDs creates the custom resource definitions at start-up.
	RegisterCRDs bool `json:"registerCRDs"`
}

func defaultConfig() *Config {
	return &Config{
		HTTPAddress:   defaultHTTPAddress,
		LogLevel:      defaultLogLevel,
		Workers:       1,
		RetryInterval: metav1.Duration{Duration: controller.DefaultRetryInterval},
		ResyncPeriod:  metav1.Duration{Duration: defaultResyncPeriod},
		StatsInterval: metav1.Duration{Duration: defaultStatsInterval},
		RegisterCRDs:  true,
	}
}

// loadConfig parses the command line. Flags left at their default do not
// override the YAML file.
func loadConfig(args []string) (*Config, error) {
	flags := defaultConfig()
	fs := flag.NewFlagSetWithEnvPrefix("podtunnel-operator", envPrefix, flag.ContinueOnError)
	configFile := fs.String("config-file", "", "location of the YAML config file")
	fs.StringVar(&flags.Kubeconfig, "kubeconfig", flags.Kubeconfig, "location of the kubeconfig, in-cluster config when empty")
	fs.StringVar(&flags.Namespace, "namespace", flags.Namespace, "namespace of the watched configs, all when empty")
	fs.StringVar(&flags.HTTPAddress, "http-address", flags.HTTPAddress, "listen address of the metrics and REST endpoint")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&flags.Workers, "workers", flags.Workers, "number of workers per reconcile stage")
	fs.DurationVar(&flags.RetryInterval.Duration, "retry-interval", flags.RetryInterval.Duration, "delay before a failed reconcile is retried")
	fs.DurationVar(&flags.ResyncPeriod.Duration, "resync-period", flags.ResyncPeriod.Duration, "informer resync period")
	fs.DurationVar(&flags.StatsInterval.Duration, "stats-interval", flags.StatsInterval.Duration, "period of the pool and config gauge refresh")
	fs.BoolVar(&flags.RegisterCRDs, "register-crds", flags.RegisterCRDs, "create the custom resource definitions at start-up")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if *configFile != "" {
		data, err := ioutil.ReadFile(*configFile)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", *configFile)
		}
	}

	fs.VisitAll(func(f *flag.Flag) {
		if f.Value.String() == f.DefValue {
			return
		}
		switch f.Name {
		case "kubeconfig":
			cfg.Kubeconfig = flags.Kubeconfig
		case "namespace":
			cfg.Namespace = flags.Namespace
		case "http-address":
			cfg.HTTPAddress = flags.HTTPAddress
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "workers":
			cfg.Workers = flags.Workers
		case "retry-interval":
			cfg.RetryInterval = flags.RetryInterval
		case "resync-period":
			cfg.ResyncPeriod = flags.ResyncPeriod
		case "stats-interval":
			cfg.StatsInterval = flags.StatsInterval
		case "register-crds":
			cfg.RegisterCRDs = flags.RegisterCRDs
		}
	})

	if cfg.Workers < 1 {
		return nil, errors.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.RetryInterval.Duration <= 0 {
		return nil, errors.Errorf("retry interval must be positive, got %v", cfg.RetryInterval.Duration)
	}
	return cfg, nil
}
