// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshkey provides cryptographic helpers for the managed deploy key:
// generating ed25519 key pairs and parsing (optionally encrypted) private keys.
package sshkey // import "github.com/toeirei/waymaster/internal/sshkey"

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// GenerateEd25519Key creates a new ed25519 key pair and returns them as
// formatted strings: the public key in authorized_keys format and the private
// key in PEM format. If a non-empty passphrase is provided, the private key
// will be encrypted with it.
func GenerateEd25519Key(comment string, passphrase string) (publicKeyString string, privateKeyString string, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	pubKeyBytes := ssh.MarshalAuthorizedKey(sshPubKey)
	publicKeyString = fmt.Sprintf("%s %s", strings.TrimSpace(string(pubKeyBytes)), comment)

	var pemBlock *pem.Block
	if passphrase == "" {
		pemBlock, err = ssh.MarshalPrivateKey(privKey, "")
	} else {
		pemBlock, err = ssh.MarshalPrivateKeyWithPassphrase(privKey, "", []byte(passphrase))
	}

	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	privateKeyString = string(pem.EncodeToMemory(pemBlock))
	return publicKeyString, privateKeyString, nil
}

// ParsePrivateKey parses a PEM-encoded private key, transparently handling
// passphrase-protected keys. A nil or empty passphrase is only valid for
// unencrypted keys.
func ParsePrivateKey(privateKey string, passphrase []byte) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey([]byte(privateKey))
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("deploy key is passphrase protected but no passphrase was provided")
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(privateKey), passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt deploy key: %w", err)
		}
		return signer, nil
	}

	return nil, fmt.Errorf("unable to parse private key: %w", err)
}
