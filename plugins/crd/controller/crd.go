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

	"github.com/ligato/cn-infra/logging"
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextcs "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
)

// RegisterCRDs creates the WireguardConfig and WireguardAddressPool CRDs,
// ignoring the ones that already exist.
func RegisterCRDs(ctx context.Context, client apiextcs.Interface, log logging.Logger) error {
	for _, crd := range []*apiextv1.CustomResourceDefinition{
		newCRD(v1alpha1.CRDFullWireguardConfigName, v1alpha1.CRDWireguardConfigPlural,
			v1alpha1.WireguardConfigKind, "wgconfig"),
		newCRD(v1alpha1.CRDFullWireguardAddressPoolName, v1alpha1.CRDWireguardAddressPoolPlural,
			v1alpha1.WireguardAddressPoolKind, "wgpool"),
	} {
		log.Infof("Creating %s CRD", crd.Spec.Names.Kind)
		_, err := client.ApiextensionsV1().CustomResourceDefinitions().Create(ctx, crd, meta.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func newCRD(fullName, plural, kind, shortName string) *apiextv1.CustomResourceDefinition {
	preserve := true
	return &apiextv1.CustomResourceDefinition{
		ObjectMeta: meta.ObjectMeta{Name: fullName},
		Spec: apiextv1.CustomResourceDefinitionSpec{
			Group: v1alpha1.CRDGroup,
			Scope: apiextv1.NamespaceScoped,
			Names: apiextv1.CustomResourceDefinitionNames{
				Plural:     plural,
				Kind:       kind,
				ListKind:   kind + "List",
				ShortNames: []string{shortName},
			},
			Versions: []apiextv1.CustomResourceDefinitionVersion{{
				Name:    v1alpha1.CRDGroupVersion,
				Served:  true,
				Storage: true,
				Subresources: &apiextv1.CustomResourceSubresources{
					Status: &apiextv1.CustomResourceSubresourceStatus{},
				},
				Schema: &apiextv1.CustomResourceValidation{
					OpenAPIV3Schema: &apiextv1.JSONSchemaProps{
						Type: "object",
						Properties: map[string]apiextv1.JSONSchemaProps{
							"spec":   {Type: "object", XPreserveUnknownFields: &preserve},
							"status": {Type: "object", XPreserveUnknownFields: &preserve},
						},
					},
				},
			}},
		},
	}
}
