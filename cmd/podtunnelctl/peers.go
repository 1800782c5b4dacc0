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
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/contiv/podtunnel/plugins/provisioner"
)

// PeerStats is the live state of one peer of a tunnel interface.
type PeerStats struct {
	PublicKey     string    `json:"publicKey"`
	Endpoint      string    `json:"endpoint,omitempty"`
	AllowedIPs    []string  `json:"allowedIPs,omitempty"`
	LastHandshake time.Time `json:"lastHandshake,omitempty"`
	ReceiveBytes  int64     `json:"receiveBytes"`
	TransmitBytes int64     `json:"transmitBytes"`
}

// readDevice reads the WireGuard device inside a network namespace; tests
// replace it.
var readDevice = func(netns, iface string) (*wgtypes.Device, error) {
	var device *wgtypes.Device
	err := provisioner.NewNetNS().Do(netns, func() error {
		client, err := wgctrl.New()
		if err != nil {
			return err
		}
		defer client.Close()
		device, err = client.Device(iface)
		return err
	})
	return device, err
}

func newCmdPeers(flags *globalFlags) *cobra.Command {
	var (
		netns string
		iface string
	)

	cmd := &cobra.Command{
		Use:   "peers --netns <path>",
		Short: "Display live peer statistics of a pod tunnel interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := readDevice(netns, iface)
			if err != nil {
				return err
			}
			peers := peerStats(device)
			if flags.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), peers)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "interface %s public key %s listening on %d\n",
				device.Name, device.PublicKey, device.ListenPort)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "PUBLIC KEY\tENDPOINT\tALLOWED IPS\tLAST HANDSHAKE\tRX\tTX")
			for _, peer := range peers {
				handshake := "never"
				if !peer.LastHandshake.IsZero() {
					handshake = peer.LastHandshake.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", peer.PublicKey, peer.Endpoint,
					strings.Join(peer.AllowedIPs, ","), handshake, peer.ReceiveBytes, peer.TransmitBytes)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&netns, "netns", "", "Path of the pod network namespace")
	cmd.Flags().StringVar(&iface, "interface", provisioner.InterfaceName, "Name of the tunnel interface")
	cmd.MarkFlagRequired("netns")
	return cmd
}

func peerStats(device *wgtypes.Device) []PeerStats {
	peers := make([]PeerStats, 0, len(device.Peers))
	for _, p := range device.Peers {
		stats := PeerStats{
			PublicKey:     p.PublicKey.String(),
			LastHandshake: p.LastHandshakeTime,
			ReceiveBytes:  p.ReceiveBytes,
			TransmitBytes: p.TransmitBytes,
		}
		if p.Endpoint != nil {
			stats.Endpoint = p.Endpoint.String()
		}
		for _, ipnet := range p.AllowedIPs {
			stats.AllowedIPs = append(stats.AllowedIPs, ipnet.String())
		}
		peers = append(peers, stats)
	}
	return peers
}
