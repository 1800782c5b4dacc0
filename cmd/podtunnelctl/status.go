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
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/contiv/podtunnel/plugins/crd/pkg/apis/podtunnel/v1alpha1"
	"github.com/contiv/podtunnel/plugins/restapi"
)

func newCmdTunnels(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tunnels",
		Short: "Display tunnel configs and how far they have converged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, namespace, err := connect(flags)
			if err != nil {
				return err
			}
			tunnels, err := restapi.ListTunnelInfo(cmd.Context(), s, namespace)
			if err != nil {
				return err
			}
			if flags.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), tunnels)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CONFIG\tPHASE\tPOD ADDRESS\tTUNNEL ADDRESS\tPEERS\tPROVISIONABLE")
			for _, t := range tunnels {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%t\n", t.Config, t.Phase, t.PodAddress,
					t.TunnelAddress, len(t.Peers), t.RequestedPeers, t.Provisionable)
			}
			return w.Flush()
		},
	}
}

func newCmdStatus(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <namespace>/<name>",
		Short: "Display the stages of one tunnel config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, namespace, err := connect(flags)
			if err != nil {
				return err
			}
			ref, err := parseReference(args[0], namespace)
			if err != nil {
				return err
			}
			cfg, err := s.GetConfig(cmd.Context(), ref.Namespace, ref.Name)
			if err != nil {
				return err
			}
			if flags.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), restapi.NewTunnelInfo(cfg))
			}
			return printStatus(cmd, cfg)
		},
	}
}

// parseReference accepts "namespace/name" or "name" in the given namespace.
func parseReference(arg, namespace string) (v1alpha1.ObjectReference, error) {
	parts := strings.Split(arg, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return v1alpha1.ObjectReference{Name: parts[0]}.WithDefaultNamespace(namespace), nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return v1alpha1.ObjectReference{Namespace: parts[0], Name: parts[1]}, nil
	default:
		return v1alpha1.ObjectReference{}, fmt.Errorf("invalid config reference %q, expected <namespace>/<name>", arg)
	}
}

func printStatus(cmd *cobra.Command, cfg *v1alpha1.WireguardConfig) error {
	info := restapi.NewTunnelInfo(cfg)
	status := &cfg.Status

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Config:\t%s\n", info.Config)
	fmt.Fprintf(w, "Phase:\t%s\n", info.Phase)
	fmt.Fprintf(w, "Pod address:\t%s\n", orNone(info.PodAddress))
	fmt.Fprintf(w, "Tunnel address:\t%s\n", orNone(info.TunnelAddress))
	if status.PrivateKey != nil {
		fmt.Fprintf(w, "Key secret:\t%s\n", status.PrivateKey)
	} else {
		fmt.Fprintf(w, "Key secret:\t%s\n", orNone(""))
	}
	fmt.Fprintf(w, "Public key:\t%s\n", orNone(info.PublicKey))
	fmt.Fprintf(w, "Listen port:\t%d\n", info.ListenPort)
	fmt.Fprintf(w, "Peers:\t%d of %d resolved\n", len(info.Peers), info.RequestedPeers)
	fmt.Fprintf(w, "Interface ready:\t%t\n", info.InterfaceReady)
	fmt.Fprintf(w, "Provisionable:\t%t\n", info.Provisionable)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(info.Peers) == 0 {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PUBLIC KEY\tENDPOINT\tALLOWED IPS")
	for i := range info.Peers {
		peer := &info.Peers[i]
		fmt.Fprintf(w, "%s\t%s\t%s\n", peer.PublicKey, peer.Endpoint(), strings.Join(peer.AllowedIPs, ","))
	}
	return w.Flush()
}

func orNone(value string) string {
	if value == "" {
		return "<none>"
	}
	return value
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
