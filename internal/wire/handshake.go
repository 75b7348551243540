// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Handshake performs the client side of the connectivity test: send a hello
// frame with a fresh token and expect the identical token back. Returns the
// token so callers can log it alongside the session.
func Handshake(rw io.ReadWriter) (string, error) {
	token := uuid.NewString()
	if err := WriteMessage(rw, TypeHello, Hello{Token: token}); err != nil {
		return "", err
	}
	var echo Hello
	if err := ReadMessage(rw, TypeHello, &echo); err != nil {
		return "", fmt.Errorf("wire: connectivity test failed: %w", err)
	}
	if echo.Token != token {
		return "", fmt.Errorf("wire: connectivity test failed: expected token %q, got %q", token, echo.Token)
	}
	return token, nil
}

// AnswerHandshake performs the server side of the connectivity test: read the
// peer's hello frame and echo it back verbatim.
func AnswerHandshake(rw io.ReadWriter) (string, error) {
	var hello Hello
	if err := ReadMessage(rw, TypeHello, &hello); err != nil {
		return "", fmt.Errorf("wire: connectivity test failed: %w", err)
	}
	if err := WriteMessage(rw, TypeHello, hello); err != nil {
		return "", err
	}
	return hello.Token, nil
}
