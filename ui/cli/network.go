// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// network.go wires the long-running daemons (cloud topology server, relay
// path server) and the one-shot route query into the CLI.

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toeirei/waymaster/internal/cloud"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/logging"
	"github.com/toeirei/waymaster/internal/relay"
	"github.com/toeirei/waymaster/internal/vehicle"
)

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Run the cloud topology server",
	Long: `Runs the cloud topology server. It listens for relay connections and
serves the current edge weights from the database. The server runs until
interrupted (SIGINT/SIGTERM).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := db.GetStore()
		if store == nil {
			return db.ErrNotInitialized
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := appConfig.Cloud.Listen
		if flagAddr, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
			addr = flagAddr
		}

		srv := cloud.NewServer(store)
		logging.Infof(i18n.T("cloud.listening"), addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a relay path server",
	Long: `Runs a relay. The relay fetches edge weights from the cloud server,
optionally caching them in Redis, and answers shortest-path requests from
vehicles. The server runs until interrupted (SIGINT/SIGTERM).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := appConfig.Relay.Listen
		if flagAddr, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
			addr = flagAddr
		}
		cloudAddr := appConfig.Relay.CloudAddr
		if flagAddr, _ := cmd.Flags().GetString("cloud-addr"); cmd.Flags().Changed("cloud-addr") {
			cloudAddr = flagAddr
		}

		fetcher := &relay.CloudFetcher{Addr: cloudAddr}

		var cache relay.TopologyCache
		if cc := appConfig.Relay.Cache; cc.Addr != "" {
			wc, err := relay.NewWeightCache(ctx, cc.Addr, cc.Password, cc.DB, cc.TTL)
			if err != nil {
				// A dead cache should not keep the relay down; routes are
				// still served, each one just pays the cloud round trip.
				logging.Warnf(i18n.T("relay.cache_unavailable"), err)
			} else {
				defer wc.Close()
				cache = wc
			}
		}

		srv := relay.NewServer(fetcher, cache)
		logging.Infof(i18n.T("relay.listening"), addr, cloudAddr)
		return srv.ListenAndServe(ctx, addr)
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <source> <destination>",
	Short: "Request a route from a relay",
	Long: `Asks a relay for the cheapest route between two waypoints and prints
the hops and total cost. This is the same request a vehicle agent makes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		relayAddr, _ := cmd.Flags().GetString("relay-addr")
		if relayAddr == "" {
			relayAddr = appConfig.Relay.Listen
			// A bare listen spec like ":12001" is not dialable.
			if strings.HasPrefix(relayAddr, ":") {
				relayAddr = "127.0.0.1" + relayAddr
			}
		}

		client := &vehicle.Client{Addr: relayAddr}
		route, err := client.RequestRoute(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("%s: %w", i18n.T("route.error_request_failed"), err)
		}

		fmt.Println(route.String())
		fmt.Printf(i18n.T("route.total_cost")+"\n", route.Cost)
		return nil
	},
}

func init() {
	cloudCmd.Flags().String("listen", "", "Listen address (overrides cloud.listen)")
	relayCmd.Flags().String("listen", "", "Listen address (overrides relay.listen)")
	relayCmd.Flags().String("cloud-addr", "", "Cloud server address (overrides relay.cloud_addr)")
	routeCmd.Flags().String("relay-addr", "", "Relay address to query")
}
