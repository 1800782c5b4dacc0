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

package v1alpha1

import (
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel"
)

var (
	// SchemeGroupVersion is the identifier for the API which includes
	// the name of the group and the version of the API
	SchemeGroupVersion = schema.GroupVersion{
		Group:   podtunnel.GroupName,
		Version: CRDGroupVersion,
	}
	// SchemeBuilder is the schema builder for the CRD API
	SchemeBuilder = runtime.NewSchemeBuilder(addKnownTypes)
	// AddToScheme registers the pod tunnel types into a scheme.
	AddToScheme = SchemeBuilder.AddToScheme

	// WireguardConfigResource identifies WireguardConfig for the dynamic client.
	WireguardConfigResource = SchemeGroupVersion.WithResource(CRDWireguardConfigPlural)
	// WireguardAddressPoolResource identifies WireguardAddressPool for the dynamic client.
	WireguardAddressPoolResource = SchemeGroupVersion.WithResource(CRDWireguardAddressPoolPlural)
)

// Resource takes an unqualified resource and returns a Group qualified GroupResource
func Resource(resource string) schema.GroupResource {
	return SchemeGroupVersion.WithResource(resource).GroupResource()
}

// addKnownTypes adds our types to the API scheme by registering
// WireguardConfig, WireguardAddressPool and their lists
func addKnownTypes(scheme *runtime.Scheme) error {
	scheme.AddKnownTypes(
		SchemeGroupVersion,
		&WireguardConfig{},
		&WireguardConfigList{},
		&WireguardAddressPool{},
		&WireguardAddressPoolList{},
	)

	// register the type in the scheme
	meta_v1.AddToGroupVersion(scheme, SchemeGroupVersion)
	return nil
}
