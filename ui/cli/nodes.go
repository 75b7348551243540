// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/model"
)

// nodeCmd is the root command for fleet node management operations.
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage fleet nodes (list, add, update, remove)",
	Long: `The 'node' command group manages the machines Waymaster deploys to:
  - List all nodes with class and status info
  - View detailed node information
  - Register new relay or vehicle nodes
  - Update node properties (label, tags)
  - Enable/disable nodes (active/inactive status)
  - Remove nodes`,
}

// nodeListCmd lists all nodes with optional filtering.
var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all nodes",
	Long: `Display all fleet nodes in table format with their class, label, tags,
deploy serial and status. You can filter by class (relay, vehicle), by
status (active, inactive) or search by hostname/username.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		classFilter, _ := cmd.Flags().GetString("class")
		statusFilter, _ := cmd.Flags().GetString("status")
		searchTerm, _ := cmd.Flags().GetString("search")

		nodes, err := db.GetAllNodes()
		if err != nil {
			return fmt.Errorf(i18n.T("node.error_list_failed"), err)
		}

		// Filter by class
		if classFilter != "" {
			filtered := []model.Node{}
			for _, n := range nodes {
				if string(n.Class) == classFilter {
					filtered = append(filtered, n)
				}
			}
			nodes = filtered
		}

		// Filter by status
		if statusFilter != "" {
			filtered := []model.Node{}
			isActive := statusFilter == "active"
			for _, n := range nodes {
				if n.IsActive == isActive {
					filtered = append(filtered, n)
				}
			}
			nodes = filtered
		}

		// Filter by search term
		if searchTerm != "" {
			searchLower := strings.ToLower(searchTerm)
			filtered := []model.Node{}
			for _, n := range nodes {
				if strings.Contains(strings.ToLower(n.Username), searchLower) ||
					strings.Contains(strings.ToLower(n.Hostname), searchLower) ||
					strings.Contains(strings.ToLower(n.Label), searchLower) {
					filtered = append(filtered, n)
				}
			}
			nodes = filtered
		}

		if len(nodes) == 0 {
			fmt.Println(i18n.T("node.list_empty"))
			return nil
		}

		// Display as table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, i18n.T("node.list_header"))
		for _, n := range nodes {
			status := i18n.T("node.status_active")
			if !n.IsActive {
				status = i18n.T("node.status_inactive")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				n.ID, n.Username, n.Hostname, n.Class, n.Label, n.Tags, n.Serial, status)
		}
		w.Flush()

		return nil
	},
}

// nodeShowCmd displays detailed information about a specific node.
var nodeShowCmd = &cobra.Command{
	Use:   "show <id or hostname>",
	Short: "Show detailed node information",
	Long:  `Display full details of a fleet node.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := findNode(args[0])
		if err != nil {
			return err
		}

		status := i18n.T("node.status_active")
		if !node.IsActive {
			status = i18n.T("node.status_inactive")
		}

		fmt.Printf(i18n.T("node.show_details"),
			node.ID, node.Username, node.Hostname, node.Class,
			node.Label, node.Tags, status, node.Serial)

		return nil
	},
}

// nodeAddCmd registers a new fleet node.
var nodeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new node",
	Long:  `Register a new fleet node with username, hostname, class and optional label and tags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		hostname, _ := cmd.Flags().GetString("hostname")
		class, _ := cmd.Flags().GetString("class")
		label, _ := cmd.Flags().GetString("label")
		tags, _ := cmd.Flags().GetString("tags")

		if username == "" {
			return fmt.Errorf("%s", i18n.T("node.error_username_required"))
		}
		if hostname == "" {
			return fmt.Errorf("%s", i18n.T("node.error_hostname_required"))
		}

		nodeClass := model.NodeClass(class)
		if nodeClass != model.NodeClassRelay && nodeClass != model.NodeClassVehicle {
			return fmt.Errorf(i18n.T("node.error_invalid_class"), class)
		}

		id, err := db.AddNode(username, hostname, nodeClass, label, tags)
		if err != nil {
			return fmt.Errorf(i18n.T("node.error_add_failed"), err)
		}

		fmt.Printf(i18n.T("node.added")+"\n", id)
		return nil
	},
}

// nodeUpdateCmd updates node properties.
var nodeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update node properties",
	Long:  `Update label or tags for an existing node.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf(i18n.T("node.error_invalid_id"), err)
		}

		if _, err := db.GetNodeByID(id); err != nil {
			return fmt.Errorf(i18n.T("node.error_not_found"), id)
		}

		if cmd.Flags().Changed("label") {
			label, _ := cmd.Flags().GetString("label")
			if err := db.UpdateNodeLabel(id, label); err != nil {
				return fmt.Errorf(i18n.T("node.error_update_label"), err)
			}
			fmt.Printf(i18n.T("node.label_updated")+"\n", label)
		}

		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			if err := db.UpdateNodeTags(id, tags); err != nil {
				return fmt.Errorf(i18n.T("node.error_update_tags"), err)
			}
			fmt.Printf(i18n.T("node.tags_updated")+"\n", tags)
		}

		if !cmd.Flags().Changed("label") && !cmd.Flags().Changed("tags") {
			fmt.Println(i18n.T("node.update_nothing"))
		}

		return nil
	},
}

// nodeEnableCmd enables a node (sets it to active).
var nodeEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a node (set to active)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setNodeStatus(args[0], true)
	},
}

// nodeDisableCmd disables a node (sets it to inactive).
var nodeDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a node (set to inactive)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setNodeStatus(args[0], false)
	},
}

// nodeRemoveCmd removes a node from the fleet.
var nodeRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a node",
	Long:  `Remove a fleet node from the database. Edges are unaffected; waypoints are independent of nodes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf(i18n.T("node.error_invalid_id"), err)
		}

		force, _ := cmd.Flags().GetBool("force")

		node, err := db.GetNodeByID(id)
		if err != nil {
			return fmt.Errorf(i18n.T("node.error_not_found"), id)
		}

		// Confirm removal unless --force is used
		if !force {
			fmt.Printf(i18n.T("node.remove_confirm"), node.String(), id)
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "yes" {
				fmt.Println(i18n.T("node.remove_cancelled"))
				return nil
			}
		}

		if err := db.DeleteNode(id); err != nil {
			return fmt.Errorf(i18n.T("node.error_remove_failed"), err)
		}

		fmt.Printf(i18n.T("node.removed")+"\n", node.String())
		return nil
	},
}

// findNode resolves a CLI identifier (numeric ID or hostname) to a node.
func findNode(identifier string) (*model.Node, error) {
	if id, parseErr := strconv.Atoi(identifier); parseErr == nil {
		node, err := db.GetNodeByID(id)
		if err != nil {
			return nil, fmt.Errorf(i18n.T("node.error_not_found"), identifier)
		}
		return node, nil
	}

	nodes, err := db.GetAllNodes()
	if err != nil {
		return nil, fmt.Errorf(i18n.T("node.error_load_failed"), err)
	}
	for i, n := range nodes {
		if n.Hostname == identifier {
			return &nodes[i], nil
		}
	}
	return nil, fmt.Errorf(i18n.T("node.error_not_found"), identifier)
}

func setNodeStatus(arg string, active bool) error {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf(i18n.T("node.error_invalid_id"), err)
	}

	node, err := db.GetNodeByID(id)
	if err != nil {
		return fmt.Errorf(i18n.T("node.error_not_found"), id)
	}

	verb := i18n.T("node.verb_enabled")
	if !active {
		verb = i18n.T("node.verb_disabled")
	}

	// If already in the requested state, report but don't error
	if node.IsActive == active {
		fmt.Printf(i18n.T("node.already_in_state")+"\n", id, verb)
		return nil
	}

	if err := db.ToggleNodeStatus(id); err != nil {
		return fmt.Errorf(i18n.T("node.error_status_failed"), err)
	}

	fmt.Printf(i18n.T("node.status_changed")+"\n", id, verb)
	return nil
}

// registerNodeCommands registers all node-related subcommands.
func registerNodeCommands() {
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeShowCmd)
	nodeCmd.AddCommand(nodeAddCmd)
	nodeCmd.AddCommand(nodeUpdateCmd)
	nodeCmd.AddCommand(nodeEnableCmd)
	nodeCmd.AddCommand(nodeDisableCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)

	// Setup flags for add (only if not already defined)
	if nodeAddCmd.Flags().Lookup("username") == nil {
		nodeAddCmd.Flags().StringP("username", "u", "", "SSH username (required)")
		nodeAddCmd.Flags().String("hostname", "", "Hostname (required)")
		nodeAddCmd.Flags().StringP("class", "c", "vehicle", "Node class ('relay' or 'vehicle')")
		nodeAddCmd.Flags().StringP("label", "l", "", "Optional label")
		nodeAddCmd.Flags().String("tags", "", "Optional tags (comma-separated)")
	}

	// Setup flags for update (only if not already defined)
	if nodeUpdateCmd.Flags().Lookup("label") == nil {
		nodeUpdateCmd.Flags().String("label", "", "Update label")
		nodeUpdateCmd.Flags().String("tags", "", "Update tags")
	}

	// Setup flags for remove (only if not already defined)
	if nodeRemoveCmd.Flags().Lookup("force") == nil {
		nodeRemoveCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	}

	// Setup flags for list (only if not already defined)
	if nodeListCmd.Flags().Lookup("class") == nil {
		nodeListCmd.Flags().String("class", "", "Filter by class (relay or vehicle)")
		nodeListCmd.Flags().String("status", "", "Filter by status (active or inactive)")
		nodeListCmd.Flags().String("search", "", "Search by username, hostname, or label")
	}
}
