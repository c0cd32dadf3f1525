// Copyright 2025 The blueth Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blueth-go/blueth/proxyclient"
	"github.com/blueth-go/blueth/transport"
)

type proxyConnectConfig struct {
	ProxyHost  string
	ProxyPort  int
	OriginHost string
	OriginPort int
	User       string
	Pass       string
	Timeout    time.Duration
}

var proxyConnectCfg proxyConnectConfig

var proxyConnectCmd = &cobra.Command{
	Use:   "proxy-connect",
	Short: "Issue a CONNECT tunnel request against an HTTP proxy and report the result",
	Run: func(cmd *cobra.Command, args []string) {
		t, err := transport.Dial(transport.Config{
			Host:        proxyConnectCfg.ProxyHost,
			Port:        proxyConnectCfg.ProxyPort,
			Protocol:    transport.ProtocolTCP,
			Role:        transport.RoleClient,
			Kind:        transport.KindSyncPlain,
			DialTimeout: proxyConnectCfg.Timeout,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to dial proxy: %v\n", err)
			os.Exit(1)
		}
		defer t.Close()

		client := proxyclient.New(t)

		var user, pass *string
		if proxyConnectCfg.User != "" {
			user = &proxyConnectCfg.User
			pass = &proxyConnectCfg.Pass
		}

		ctx, cancel := context.WithTimeout(context.Background(), proxyConnectCfg.Timeout)
		defer cancel()

		result, err := client.Connect(ctx, proxyConnectCfg.OriginHost, uint16(proxyConnectCfg.OriginPort), user, pass)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(result)
		if result != proxyclient.ConnectionSuccess {
			os.Exit(1)
		}
	},
	Example: "# blueth proxy-connect --proxy-host proxy.example.com --proxy-port 3128 --origin-host example.com --origin-port 443",
}

func init() {
	proxyConnectCmd.Flags().StringVar(&proxyConnectCfg.ProxyHost, "proxy-host", "", "Proxy host to dial")
	proxyConnectCmd.Flags().IntVar(&proxyConnectCfg.ProxyPort, "proxy-port", 3128, "Proxy port to dial")
	proxyConnectCmd.Flags().StringVar(&proxyConnectCfg.OriginHost, "origin-host", "", "Origin host to tunnel to")
	proxyConnectCmd.Flags().IntVar(&proxyConnectCfg.OriginPort, "origin-port", 443, "Origin port to tunnel to")
	proxyConnectCmd.Flags().StringVar(&proxyConnectCfg.User, "user", "", "Proxy-Authorization username (Basic)")
	proxyConnectCmd.Flags().StringVar(&proxyConnectCfg.Pass, "pass", "", "Proxy-Authorization password (Basic)")
	proxyConnectCmd.Flags().DurationVar(&proxyConnectCfg.Timeout, "timeout", 10*time.Second, "Dial and connect timeout")
	_ = proxyConnectCmd.MarkFlagRequired("proxy-host")
	_ = proxyConnectCmd.MarkFlagRequired("origin-host")
	rootCmd.AddCommand(proxyConnectCmd)
}
