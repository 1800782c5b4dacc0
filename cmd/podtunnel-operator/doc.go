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
//
// Podtunnel-operator reconciles WireguardConfig resources. Four controllers,
// one per stage, assign the tunnel address, issue the key pair, resolve the
// peers and finally mark the interface ready for the CNI plugin. Address
// pool utilisation, config phases and reconcile outcomes are exported as
// prometheus metrics next to a small read-only REST API.
package main
