// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package deploy provides functionality for connecting to fleet nodes via SSH
// and pushing agent artifacts to them. Authentication uses the managed deploy
// key with an SSH agent fallback; host keys are pinned in the database.
package deploy // import "github.com/toeirei/waymaster/internal/deploy"

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/sshkey"
	"golang.org/x/crypto/ssh"
)

// connectTimeout bounds the TCP+SSH handshake against a node.
const connectTimeout = 10 * time.Second

// Deployer handles the connection and artifact transfer to a fleet node.
type Deployer struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// hostKeyCallback verifies the presented host key against the pinned key in
// the database. Unknown hosts are a hard error; the operator must run
// `waymaster trust-node` first.
func hostKeyCallback(hostname string, remote net.Addr, key ssh.PublicKey) error {
	// The hostname passed to the callback can include the port. We need to
	// strip it to ensure we're looking up the correct key in our database.
	host, _, err := net.SplitHostPort(hostname)
	if err != nil {
		// If SplitHostPort fails, it means there was no port, so we use the original string.
		host = hostname
	}

	// The key is presented in the format "ssh-ed25519 AAA..."
	presentedKey := string(ssh.MarshalAuthorizedKey(key))

	knownKey, err := db.GetKnownHostKey(host)
	if err != nil {
		return fmt.Errorf("failed to query known_hosts database: %w", err)
	}

	// If we don't have a key, this is the first connection.
	if knownKey == "" {
		return fmt.Errorf("unknown host key for %s. run 'waymaster trust-node' to add it", host)
	}

	// If the key exists, it must match exactly.
	if knownKey != presentedKey {
		return fmt.Errorf("!!! HOST KEY MISMATCH FOR %s !!!\nRemote key presented: %s\nThis could be a man-in-the-middle attack", host, presentedKey)
	}

	return nil // Host key is trusted.
}

// NewDeployer creates a new SSH connection to a node and returns a Deployer.
// privateKey is the PEM-encoded deploy key; passphrase decrypts it when the
// key is encrypted. When the deploy key fails to authenticate, a running SSH
// agent is tried as a fallback.
func NewDeployer(host, user, privateKey string, passphrase []byte) (*Deployer, error) {
	// Add port 22 if not specified.
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}

	var finalErr error

	// --- Attempt 1: Use the managed deploy key exclusively ---
	if privateKey != "" {
		signer, err := sshkey.ParsePrivateKey(privateKey, passphrase)
		if err != nil {
			return nil, err
		}

		config := &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         connectTimeout,
		}

		client, err := ssh.Dial("tcp", addr, config)
		if err == nil {
			// Success! We connected with the deploy key.
			sftpClient, sftpErr := sftp.NewClient(client)
			if sftpErr != nil {
				client.Close()
				return nil, fmt.Errorf("failed to create sftp client: %w", sftpErr)
			}
			return &Deployer{client: client, sftp: sftpClient}, nil
		}

		// If the error was not an auth failure, we should fail fast.
		if !strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("connection with deploy key failed: %w", err)
		}
		// It was an auth error, so we'll store it and try the agent.
		finalErr = err
	}

	// --- Attempt 2: Use the SSH agent as a fallback ---
	agentClient := getSSHAgent()
	if agentClient == nil {
		if finalErr != nil { // This means the deploy key auth failed before this.
			return nil, fmt.Errorf("deploy key authentication failed, and no SSH agent available for fallback: %w", finalErr)
		}
		return nil, fmt.Errorf("no authentication method available (no deploy key provided and no ssh agent found)")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         connectTimeout,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("connection with ssh agent failed: %w", err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return &Deployer{
		client: client,
		sftp:   sftpClient,
	}, nil
}

// PushFile uploads content to remotePath on the node and moves it into place
// atomically: write to a temporary file in the target directory, set
// permissions, then rename. executable selects 0755 over 0644, covering the
// `chmod +x` step of a manual deployment.
func (d *Deployer) PushFile(content io.Reader, remotePath string, executable bool) error {
	dir := path.Dir(remotePath)

	// Upload to a temporary file within the target directory for atomic rename.
	tmpPath := path.Join(dir, fmt.Sprintf(".waymaster.upload.%d", time.Now().UnixNano()))
	f, err := d.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file on remote (check permissions for %s): %w", dir, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		// Best effort to clean up the failed upload
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to write to temporary file on remote: %w", err)
	}
	f.Close()

	// Set permissions on the temporary file before moving.
	mode := os.FileMode(0o644)
	if executable {
		mode = 0o755
	}
	if err := d.sftp.Chmod(tmpPath, mode); err != nil {
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}

	// Atomically move the file into place.
	if err := d.sftp.Rename(tmpPath, remotePath); err != nil {
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to atomically rename %s into place: %w", remotePath, err)
	}

	return nil
}

// Chmod changes the permissions of a remote file.
func (d *Deployer) Chmod(remotePath string, mode os.FileMode) error {
	if err := d.sftp.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", remotePath, err)
	}
	return nil
}

// ReadFile reads and returns the content of a remote file.
func (d *Deployer) ReadFile(remotePath string) ([]byte, error) {
	f, err := d.sftp.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read from remote file %s: %w", remotePath, err)
	}
	return content, nil
}

// RunCommand executes a command on the node and returns its combined output.
// With sudo set, the command is wrapped so it runs in an elevated login
// shell, the programmatic equivalent of `sudo -i` followed by the command.
func (d *Deployer) RunCommand(command string, sudo bool) (string, error) {
	session, err := d.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	if sudo {
		command = "sudo -i sh -c " + shellQuote(command)
	}

	out, err := session.CombinedOutput(command)
	if err != nil {
		return string(out), fmt.Errorf("remote command failed: %w", err)
	}
	return string(out), nil
}

// shellQuote wraps a command in single quotes, escaping embedded ones, so it
// survives the remote shell intact.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Close closes the underlying SSH and SFTP clients.
func (d *Deployer) Close() {
	if d.sftp != nil {
		d.sftp.Close()
	}
	if d.client != nil {
		d.client.Close()
	}
}

// GetRemoteHostKey connects to a host just to retrieve its public key.
func GetRemoteHostKey(host string) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)

	config := &ssh.ClientConfig{
		// We don't need to authenticate for this, just start the handshake.
		User: "waymaster-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			// We got the key, send it back on the channel.
			keyChan <- key
			// Return a specific error to gracefully stop the handshake.
			return fmt.Errorf("waymaster: successfully retrieved host key")
		},
		Timeout: 5 * time.Second,
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}

	// We expect ssh.Dial to fail with our specific error.
	_, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		// Check if it's our specific error.
		if strings.Contains(err.Error(), "waymaster: successfully retrieved host key") {
			// Success, the key is in the channel.
			return <-keyChan, nil
		}
		// It's a different, real error (e.g., connection refused).
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	// This case should ideally not be reached if the callback returns an error.
	return nil, fmt.Errorf("ssh.Dial succeeded unexpectedly, could not retrieve key")
}
