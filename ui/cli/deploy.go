// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// deploy.go contains the commands that touch fleet nodes over SSH: pushing
// agent artifacts, running remote commands, and pinning host keys.

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/deploy"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/state"
)

// deployCmd is the root command for fleet deployment operations.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Push artifacts and run commands on fleet nodes",
	Long: `The 'deploy' command group operates on fleet nodes over SSH using the
managed deploy key:
  - Push the agent binary or script to nodes (scp semantics)
  - Run commands on nodes, optionally under sudo
  - Change permissions of files pushed earlier (chmod semantics)`,
}

// deployPushCmd uploads a local file to one or more nodes.
var deployPushCmd = &cobra.Command{
	Use:   "push <local-file> <remote-path> [node]",
	Short: "Upload a file to one or all nodes",
	Long: `Uploads a local file to the given remote path on fleet nodes. With a
node argument (ID, hostname or user@host) only that node is targeted;
otherwise all active nodes matching the class/tag filters are.

Use --executable to mark the uploaded file executable (0755), e.g. for
the agent binary or its launch script.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath := args[0]
		remotePath := args[1]

		executable, _ := cmd.Flags().GetBool("executable")
		verify, _ := cmd.Flags().GetBool("verify")

		nodes, err := resolveTargetNodes(cmd, args[2:])
		if err != nil {
			return err
		}

		if err := maybePromptPassphrase(cmd); err != nil {
			return err
		}
		defer state.PassphraseCache.Clear()

		failures := 0
		for _, node := range nodes {
			f, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", localPath, err)
			}

			err = deploy.RunPushForNode(node, f, remotePath, executable, verify)
			f.Close()
			if err != nil {
				failures++
				fmt.Printf(i18n.T("deploy.push_fail_message")+"\n", node.String(), err)
				continue
			}
			fmt.Printf(i18n.T("deploy.push_success_message")+"\n", node.String(), remotePath)
		}

		if failures > 0 {
			return fmt.Errorf(i18n.T("deploy.error_some_failed"), failures, len(nodes))
		}
		return nil
	},
}

// deployRunCmd executes a command on one or more nodes.
var deployRunCmd = &cobra.Command{
	Use:   "run <command> [node]",
	Short: "Run a command on one or all nodes",
	Long: `Runs a shell command on fleet nodes and prints the combined output.
With a node argument (ID, hostname or user@host) only that node is
targeted; otherwise all active nodes matching the class/tag filters are.

Use --sudo to run the command in an elevated login shell, e.g. to start
the agent as root.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := args[0]
		sudo, _ := cmd.Flags().GetBool("sudo")

		nodes, err := resolveTargetNodes(cmd, args[1:])
		if err != nil {
			return err
		}

		if err := maybePromptPassphrase(cmd); err != nil {
			return err
		}
		defer state.PassphraseCache.Clear()

		failures := 0
		for _, node := range nodes {
			out, err := deploy.RunCommandForNode(node, command, sudo)
			if err != nil {
				failures++
				fmt.Printf(i18n.T("deploy.run_fail_message")+"\n", node.String(), err)
				if out != "" {
					fmt.Print(out)
				}
				continue
			}
			fmt.Printf(i18n.T("deploy.run_success_message")+"\n", node.String())
			if out != "" {
				fmt.Print(out)
			}
		}

		if failures > 0 {
			return fmt.Errorf(i18n.T("deploy.error_some_failed"), failures, len(nodes))
		}
		return nil
	},
}

// deployChmodCmd changes permissions of a remote file.
var deployChmodCmd = &cobra.Command{
	Use:   "chmod <mode> <remote-path> [node]",
	Short: "Change permissions of a remote file",
	Long: `Changes the permissions of a file on fleet nodes, e.g. to mark a
previously pushed script executable. The mode is octal ('755', '0644')
or the shorthand '+x' for 0755. With a node argument (ID, hostname or
user@host) only that node is targeted; otherwise all active nodes
matching the class/tag filters are.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseFileMode(args[0])
		if err != nil {
			return err
		}
		remotePath := args[1]

		nodes, err := resolveTargetNodes(cmd, args[2:])
		if err != nil {
			return err
		}

		if err := maybePromptPassphrase(cmd); err != nil {
			return err
		}
		defer state.PassphraseCache.Clear()

		failures := 0
		for _, node := range nodes {
			if err := deploy.RunChmodForNode(node, remotePath, mode); err != nil {
				failures++
				fmt.Printf(i18n.T("deploy.chmod_fail_message")+"\n", node.String(), err)
				continue
			}
			fmt.Printf(i18n.T("deploy.chmod_success_message")+"\n", node.String(), remotePath, args[0])
		}

		if failures > 0 {
			return fmt.Errorf(i18n.T("deploy.error_some_failed"), failures, len(nodes))
		}
		return nil
	},
}

// parseFileMode accepts octal permission strings and the '+x' shorthand.
func parseFileMode(s string) (os.FileMode, error) {
	if s == "+x" {
		return 0o755, nil
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil || n > 0o7777 {
		return 0, fmt.Errorf(i18n.T("deploy.error_bad_mode"), s)
	}
	return os.FileMode(n), nil
}

// trustNodeCmd fetches and pins a node's SSH host key.
var trustNodeCmd = &cobra.Command{
	Use:   "trust-node <hostname>",
	Short: "Fetch and pin a node's SSH host key",
	Long: `Connects to the node, retrieves its SSH host key, and stores it in the
database. Deployments refuse to connect to hosts whose key is not pinned,
so this must be run once per node before the first push.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostname := args[0]

		existing, err := db.GetKnownHostKey(hostname)
		if err != nil {
			return fmt.Errorf("failed to check known hosts: %w", err)
		}
		if existing != "" {
			fmt.Printf(i18n.T("trust_node.already_trusted")+"\n", hostname)
			return nil
		}

		key, err := deploy.GetRemoteHostKey(hostname)
		if err != nil {
			return fmt.Errorf(i18n.T("trust_node.error_fetch_key"), hostname, err)
		}

		keyString := string(ssh.MarshalAuthorizedKey(key))
		fmt.Printf(i18n.T("trust_node.fingerprint")+"\n", hostname, ssh.FingerprintSHA256(key))

		if err := db.AddKnownHostKey(hostname, keyString); err != nil {
			return fmt.Errorf(i18n.T("trust_node.error_store_key"), err)
		}

		fmt.Printf(i18n.T("trust_node.trusted")+"\n", hostname)
		return nil
	},
}

// resolveTargetNodes turns the optional node argument plus the --class and
// --tag filters into the list of nodes a deploy command operates on. With
// no argument and no filters, all active nodes are targeted.
func resolveTargetNodes(cmd *cobra.Command, args []string) ([]model.Node, error) {
	if len(args) == 1 {
		node, err := findDeployTarget(args[0])
		if err != nil {
			return nil, err
		}
		return []model.Node{*node}, nil
	}

	classFilter, _ := cmd.Flags().GetString("class")
	tagFilter, _ := cmd.Flags().GetString("tag")

	nodes, err := db.GetAllActiveNodes()
	if err != nil {
		return nil, fmt.Errorf(i18n.T("node.error_load_failed"), err)
	}

	targets := []model.Node{}
	for _, n := range nodes {
		if classFilter != "" && string(n.Class) != classFilter {
			continue
		}
		if tagFilter != "" && !hasTag(n.Tags, tagFilter) {
			continue
		}
		targets = append(targets, n)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%s", i18n.T("deploy.error_no_targets"))
	}
	return targets, nil
}

// findDeployTarget resolves an identifier that may be an ID, a hostname, or
// the user@host form.
func findDeployTarget(identifier string) (*model.Node, error) {
	if user, host, ok := strings.Cut(identifier, "@"); ok {
		node, err := db.GetNodeByAddress(user, host)
		if err != nil {
			return nil, fmt.Errorf(i18n.T("node.error_not_found"), identifier)
		}
		return node, nil
	}
	return findNode(identifier)
}

func hasTag(tags, want string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.TrimSpace(t) == want {
			return true
		}
	}
	return false
}

// passphraseEnvVar lets scripted deploys supply the deploy key passphrase
// without a terminal.
const passphraseEnvVar = "WAYMASTER_PASSPHRASE"

// maybePromptPassphrase parks the deploy key passphrase in the state mailbox
// for the deploy layer to pick up. --passphrase prompts on the terminal;
// without the flag, the WAYMASTER_PASSPHRASE environment variable is used
// when set.
func maybePromptPassphrase(cmd *cobra.Command) error {
	wantPrompt, _ := cmd.Flags().GetBool("passphrase")
	if !wantPrompt {
		if env := os.Getenv(passphraseEnvVar); env != "" {
			state.PassphraseCache.Set([]byte(env))
		}
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%s", i18n.T("deploy.error_passphrase_no_tty"))
	}

	fmt.Print(i18n.T("deploy.passphrase_prompt"))
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf(i18n.T("deploy.error_read_passphrase"), err)
	}

	state.PassphraseCache.Set(passphrase)
	for i := range passphrase {
		passphrase[i] = 0
	}
	return nil
}

// registerDeployCommands registers all deploy-related subcommands.
func registerDeployCommands() {
	deployCmd.AddCommand(deployPushCmd)
	deployCmd.AddCommand(deployRunCmd)
	deployCmd.AddCommand(deployChmodCmd)

	if deployPushCmd.Flags().Lookup("executable") == nil {
		deployPushCmd.Flags().BoolP("executable", "x", false, "Mark the uploaded file executable (chmod 0755)")
		deployPushCmd.Flags().Bool("verify", false, "Read the file back after upload and compare checksums")
		deployPushCmd.Flags().String("class", "", "Target only nodes of this class (relay or vehicle)")
		deployPushCmd.Flags().String("tag", "", "Target only nodes carrying this tag")
		deployPushCmd.Flags().BoolP("passphrase", "p", false, "Prompt for the deploy key passphrase")
	}

	if deployRunCmd.Flags().Lookup("sudo") == nil {
		deployRunCmd.Flags().Bool("sudo", false, "Run the command in an elevated login shell")
		deployRunCmd.Flags().String("class", "", "Target only nodes of this class (relay or vehicle)")
		deployRunCmd.Flags().String("tag", "", "Target only nodes carrying this tag")
		deployRunCmd.Flags().BoolP("passphrase", "p", false, "Prompt for the deploy key passphrase")
	}

	if deployChmodCmd.Flags().Lookup("class") == nil {
		deployChmodCmd.Flags().String("class", "", "Target only nodes of this class (relay or vehicle)")
		deployChmodCmd.Flags().String("tag", "", "Target only nodes carrying this tag")
		deployChmodCmd.Flags().BoolP("passphrase", "p", false, "Prompt for the deploy key passphrase")
	}
}
