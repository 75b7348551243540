// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/graph"
	"github.com/toeirei/waymaster/internal/i18n"
)

// edgeCmd is the root command for topology management operations.
var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage the road topology (list, set, remove edges)",
	Long: `The 'edge' command group edits the weighted road graph served by the
cloud server. Edges are undirected: setting A--B also covers B--A.`,
}

// edgeListCmd lists all edges.
var edgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all edges",
	Long:  `Display the current topology in table format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := db.GetAllEdges()
		if err != nil {
			return fmt.Errorf(i18n.T("edge.error_list_failed"), err)
		}

		if len(edges) == 0 {
			fmt.Println(i18n.T("edge.list_empty"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, i18n.T("edge.list_header"))
		for _, e := range edges {
			updated := ""
			if !e.UpdatedAt.IsZero() {
				updated = e.UpdatedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.From, e.To, e.Weight, updated)
		}
		w.Flush()

		return nil
	},
}

// edgeSetCmd creates or updates an edge.
var edgeSetCmd = &cobra.Command{
	Use:   "set <from> <to> <weight>",
	Short: "Create or update an edge",
	Long: `Set the weight of the undirected edge between two waypoints. An existing
edge is updated in place; a new waypoint pair creates the edge. Weights
must be positive integers.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		weight, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf(i18n.T("edge.error_invalid_weight"), args[2], err)
		}
		if weight <= 0 {
			return fmt.Errorf(i18n.T("edge.error_weight_positive"), weight)
		}

		if err := db.UpsertEdge(args[0], args[1], weight); err != nil {
			return fmt.Errorf(i18n.T("edge.error_set_failed"), err)
		}

		fmt.Printf(i18n.T("edge.set")+"\n", args[0], args[1], weight)
		return nil
	},
}

// edgeRemoveCmd removes an edge.
var edgeRemoveCmd = &cobra.Command{
	Use:   "remove <from> <to>",
	Short: "Remove an edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.DeleteEdge(args[0], args[1]); err != nil {
			return fmt.Errorf(i18n.T("edge.error_remove_failed"), err)
		}

		fmt.Printf(i18n.T("edge.removed")+"\n", args[0], args[1])
		return nil
	},
}

// edgeCheckCmd computes a route locally against the database, without a
// relay. Useful to sanity-check topology edits before they hit the fleet.
var edgeCheckCmd = &cobra.Command{
	Use:   "check <source> <destination>",
	Short: "Compute a route directly from the database",
	Long: `Build the graph from the stored edges and compute the cheapest route
between two waypoints. This bypasses the cloud/relay path and shows what
the fleet would see after the next topology fetch.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := db.GetAllEdges()
		if err != nil {
			return fmt.Errorf(i18n.T("edge.error_load_failed"), err)
		}

		g := graph.Build(edges)
		route, err := g.ShortestPath(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Println(route.String())
		fmt.Printf(i18n.T("route.total_cost")+"\n", route.Cost)
		return nil
	},
}

// registerEdgeCommands registers all edge-related subcommands.
func registerEdgeCommands() {
	edgeCmd.AddCommand(edgeListCmd)
	edgeCmd.AddCommand(edgeSetCmd)
	edgeCmd.AddCommand(edgeRemoveCmd)
	edgeCmd.AddCommand(edgeCheckCmd)
}
