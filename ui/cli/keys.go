// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// keys.go manages the deploy keypair: initial generation and rotation.

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/sshkey"
)

// keygenCmd generates the initial deploy keypair.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the initial deploy key",
	Long: `Generates an ed25519 deploy keypair and stores it in the database as
the active key (serial 1). The public key must be installed in the
authorized_keys of each fleet node account before the first push.

Refuses to run if deploy keys already exist; use 'rotate-key' instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hasKeys, err := db.HasSystemKeys()
		if err != nil {
			return fmt.Errorf("failed to check for existing keys: %w", err)
		}
		if hasKeys {
			return fmt.Errorf("%s", i18n.T("keygen.error_keys_exist"))
		}

		passphrase, err := readNewKeyPassphrase(cmd)
		if err != nil {
			return err
		}

		pub, priv, err := sshkey.GenerateEd25519Key("waymaster-deploy", passphrase)
		if err != nil {
			return fmt.Errorf(i18n.T("keygen.error_generate"), err)
		}

		serial, err := db.CreateSystemKey(pub, priv)
		if err != nil {
			return fmt.Errorf(i18n.T("keygen.error_save"), err)
		}

		fmt.Printf(i18n.T("keygen.created")+"\n", serial)
		fmt.Println(i18n.T("keygen.install_hint"))
		fmt.Println(pub)
		return nil
	},
}

// rotateKeyCmd rotates the active deploy key.
var rotateKeyCmd = &cobra.Command{
	Use:   "rotate-key",
	Short: "Rotate the active deploy key",
	Long: `Generates a new ed25519 deploy keypair, saves it to the database, and
sets it as the active key. The previous key is kept so nodes that were
last deployed with it can still be reached until their next push.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(i18n.T("rotate_key.rotating"))

		passphrase, err := readNewKeyPassphrase(cmd)
		if err != nil {
			return err
		}

		pub, priv, err := sshkey.GenerateEd25519Key("waymaster-deploy", passphrase)
		if err != nil {
			return fmt.Errorf(i18n.T("keygen.error_generate"), err)
		}

		serial, err := db.RotateSystemKey(pub, priv)
		if err != nil {
			return fmt.Errorf(i18n.T("rotate_key.error_save"), err)
		}

		fmt.Printf(i18n.T("rotate_key.rotated")+"\n", serial)
		fmt.Println(i18n.T("rotate_key.push_reminder"))
		return nil
	},
}

// readNewKeyPassphrase prompts twice for a passphrase to encrypt a new
// private key when --passphrase is set. An empty return means the key is
// stored unencrypted.
func readNewKeyPassphrase(cmd *cobra.Command) (string, error) {
	wantPrompt, _ := cmd.Flags().GetBool("passphrase")
	if !wantPrompt {
		return "", nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s", i18n.T("keygen.error_passphrase_no_tty"))
	}

	fmt.Print(i18n.T("keygen.passphrase_prompt"))
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf(i18n.T("keygen.error_read_passphrase"), err)
	}

	fmt.Print(i18n.T("keygen.passphrase_confirm"))
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf(i18n.T("keygen.error_read_passphrase"), err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("%s", i18n.T("keygen.error_passphrase_mismatch"))
	}
	return string(first), nil
}
