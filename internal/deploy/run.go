// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
	"github.com/toeirei/waymaster/internal/model"
	"github.com/toeirei/waymaster/internal/state"
)

// connectForNode resolves the deploy key to use for a node and opens a
// Deployer. A node with serial 0 has never been deployed to, so the active
// key is used for bootstrapping; otherwise the key the node was last
// deployed with is required.
func connectForNode(node model.Node) (*Deployer, error) {
	var connectKey *model.SystemKey
	var err error

	if node.Serial == 0 {
		connectKey, err = db.GetActiveSystemKey()
		if err != nil {
			return nil, fmt.Errorf(i18n.T("deploy.error_get_bootstrap_key"), err)
		}
		if connectKey == nil {
			return nil, errors.New(i18n.T("deploy.error_no_bootstrap_key"))
		}
	} else {
		connectKey, err = db.GetSystemKeyBySerial(node.Serial)
		if err != nil {
			return nil, fmt.Errorf(i18n.T("deploy.error_get_serial_key"), node.Serial, err)
		}
		if connectKey == nil {
			return nil, fmt.Errorf(i18n.T("deploy.error_no_serial_key"), node.Serial)
		}
	}

	// Get the passphrase from the in-memory cache.
	passphrase := state.PassphraseCache.Get()
	// It's critical to wipe the passphrase from memory after we're done with it.
	// We use a defer to ensure this happens even if other parts of the function fail.
	defer func() {
		for i := range passphrase {
			passphrase[i] = 0
		}
	}()

	deployer, err := NewDeployer(node.Hostname, node.Username, connectKey.PrivateKey, passphrase)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("deploy.error_connection_failed"), node.String(), err)
	}
	return deployer, nil
}

// RunPushForNode uploads an artifact to a single node and records the
// deploy-key serial used. The artifact lands at remotePath with 0755 when
// executable is set, 0644 otherwise. With verify set, the remote file is read
// back after the upload and its checksum compared against what was sent.
func RunPushForNode(node model.Node, content io.Reader, remotePath string, executable, verify bool) error {
	deployer, err := connectForNode(node)
	if err != nil {
		return err
	}
	defer deployer.Close()

	sum := sha256.New()
	src := content
	if verify {
		src = io.TeeReader(content, sum)
	}

	if err := deployer.PushFile(src, remotePath, executable); err != nil {
		return fmt.Errorf(i18n.T("deploy.error_push_failed"), err)
	}

	if verify {
		remote, err := deployer.ReadFile(remotePath)
		if err != nil {
			return fmt.Errorf(i18n.T("deploy.error_verify_failed"), err)
		}
		remoteSum := sha256.Sum256(remote)
		if !bytes.Equal(sum.Sum(nil), remoteSum[:]) {
			return fmt.Errorf(i18n.T("deploy.error_verify_mismatch"), remotePath)
		}
	}

	activeKey, err := db.GetActiveSystemKey()
	if err != nil || activeKey == nil {
		return errors.New(i18n.T("deploy.error_get_active_key_for_serial"))
	}

	// SQLite under concurrent deploys occasionally reports a locked database;
	// retry the serial update a few times before giving up.
	for i := 0; i < 5; i++ {
		if err = db.UpdateNodeSerial(node.ID, activeKey.Serial); err == nil || !strings.Contains(err.Error(), "database is locked") {
			break
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
	if err == nil {
		_ = db.LogAction("DEPLOY_PUSH", fmt.Sprintf("node: %s, path: %s, executable: %t", node.String(), remotePath, executable))
	}
	return err
}

// RunChmodForNode changes the permissions of a remote file on a single node,
// the programmatic form of a manual `chmod` after an upload.
func RunChmodForNode(node model.Node, remotePath string, mode os.FileMode) error {
	deployer, err := connectForNode(node)
	if err != nil {
		return err
	}
	defer deployer.Close()

	if err := deployer.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf(i18n.T("deploy.error_chmod_failed"), err)
	}
	_ = db.LogAction("DEPLOY_CHMOD", fmt.Sprintf("node: %s, path: %s, mode: %o", node.String(), remotePath, mode))
	return nil
}

// RunCommandForNode executes a command on a single node and returns its
// combined output. sudo wraps the command in an elevated login shell.
func RunCommandForNode(node model.Node, command string, sudo bool) (string, error) {
	deployer, err := connectForNode(node)
	if err != nil {
		return "", err
	}
	defer deployer.Close()

	out, err := deployer.RunCommand(command, sudo)
	if err != nil {
		return out, fmt.Errorf(i18n.T("deploy.error_command_failed"), node.String(), err)
	}
	_ = db.LogAction("DEPLOY_RUN", fmt.Sprintf("node: %s, command: %s, sudo: %t", node.String(), command, sudo))
	return out, nil
}
