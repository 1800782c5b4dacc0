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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
)

// podtunnel-operator main entry point.
func main() {
	config, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := newLogger(operatorName, config.LogLevel)

	c, err := newClients(config.Kubeconfig)
	if err != nil {
		log.Fatalf("Failed to create API clients: %v", err)
	}
	operator, err := newOperator(config, log, c, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		log.Fatalf("Failed to initialize operator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := operator.Run(ctx); err != nil {
		log.Fatalf("Operator failed: %v", err)
	}
}
