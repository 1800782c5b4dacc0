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
// Podtunnel-cni is a chained CNI plugin (binary) that gives a pod a WireGuard
// tunnel interface. On ADD it publishes the pod IP found in the previous
// result to the pod's WireguardConfig, waits until the operator has
// reconciled the config and then creates and configures wg0 inside the pod
// network namespace. The previous result is printed back extended with the
// tunnel interface and address. DEL and CHECK succeed without doing anything.
// This plugin implements the CNI specification version 1.0.0
// (https://github.com/containernetworking/cni/blob/spec-v1.0.0/SPEC.md).
package main
