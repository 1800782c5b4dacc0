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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/contiv/podtunnel/plugins/crd/store"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// globalFlags are the persistent flags shared by all commands.
type globalFlags struct {
	kubeconfig    string
	namespace     string
	allNamespaces bool
	output        string
}

// newStore connects to the API server; tests replace it.
var newStore = func(flags *globalFlags) (store.Store, string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = flags.kubeconfig
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})

	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, "", err
	}
	namespace, _, err := clientConfig.Namespace()
	if err != nil {
		return nil, "", err
	}
	client, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, "", err
	}
	return store.NewKubeStore(client), namespace, nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "podtunnelctl",
		Short:         "Inspect pod WireGuard tunnels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != outputTable && flags.output != outputJSON {
				return fmt.Errorf("unknown output format %q", flags.output)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&flags.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	cmd.PersistentFlags().StringVarP(&flags.namespace, "namespace", "n", "", "Namespace, the kubeconfig context namespace when empty")
	cmd.PersistentFlags().BoolVarP(&flags.allNamespaces, "all-namespaces", "A", false, "List objects of all namespaces")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", outputTable, "Output format (table, json)")

	cmd.AddCommand(
		newCmdPools(flags),
		newCmdTunnels(flags),
		newCmdStatus(flags),
		newCmdPeers(flags),
	)
	return cmd
}

// connect returns the store and the namespace the command works in.
func connect(flags *globalFlags) (store.Store, string, error) {
	s, namespace, err := newStore(flags)
	if err != nil {
		return nil, "", err
	}
	switch {
	case flags.allNamespaces:
		namespace = ""
	case flags.namespace != "":
		namespace = flags.namespace
	}
	return s, namespace, nil
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
