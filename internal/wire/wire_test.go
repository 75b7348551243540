// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"reflect"
	"testing"

	"github.com/toeirei/waymaster/internal/model"
)

func TestRouteRequestRoundtrip(t *testing.T) {
	var buf bytes.Buffer

	want := RouteRequest{ID: "req-1", Source: "A", Destination: "E"}
	if err := WriteMessage(&buf, TypeRouteRequest, want); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	var got RouteRequest
	if err := ReadMessage(&buf, TypeRouteRequest, &got); err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWeightsResponseRoundtrip(t *testing.T) {
	var buf bytes.Buffer

	want := WeightsResponse{Edges: []model.Edge{
		{From: "A", To: "B", Weight: 3},
		{From: "B", To: "C", Weight: 1},
	}}
	if err := WriteMessage(&buf, TypeWeightsResponse, want); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	var got WeightsResponse
	if err := ReadMessage(&buf, TypeWeightsResponse, &got); err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if !reflect.DeepEqual(got.Edges, want.Edges) {
		t.Errorf("edges = %v, want %v", got.Edges, want.Edges)
	}
}

func TestReadMessage_ErrorFrameBecomesRemoteError(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteMessage(&buf, TypeError, ErrorResponse{
		ID: "req-9", Code: CodeNoRoute, Message: "no route between X and Y",
	}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	var out RouteResponse
	err := ReadMessage(&buf, TypeRouteResponse, &out)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if remote.Code != CodeNoRoute {
		t.Errorf("code = %q, want %q", remote.Code, CodeNoRoute)
	}
}

func TestErrorFrameTypeTag(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteMessage(&buf, TypeError, ErrorResponse{Code: CodeInternal, Message: "x"}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	env, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope failed: %v", err)
	}
	// The tag is part of the wire contract; peers match on it literally.
	if env.Type != "error_response" {
		t.Errorf("error frame type = %q, want %q", env.Type, "error_response")
	}
}

func TestReadMessage_UnexpectedType(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteMessage(&buf, TypeHello, Hello{Token: "t"}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	var out RouteResponse
	if err := ReadMessage(&buf, TypeRouteResponse, &out); err == nil {
		t.Fatalf("expected type mismatch error, got nil")
	}
}

func TestReadEnvelope_RejectsOversizedFrame(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)

	_, err := ReadEnvelope(bytes.NewReader(hdr[:]))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadEnvelope_TruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, TypeHello, Hello{Token: "t"}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	// Drop the last byte of the frame.
	data := buf.Bytes()[:buf.Len()-1]

	if _, err := ReadEnvelope(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for truncated frame, got nil")
	}
}

func TestReadEnvelope_CleanEOF(t *testing.T) {
	if _, err := ReadEnvelope(bytes.NewReader(nil)); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestHandshakeEcho(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, err := AnswerHandshake(server)
		done <- err
	}()

	token, err := Handshake(client)
	if err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
	if token == "" {
		t.Errorf("expected a non-empty token")
	}
	if err := <-done; err != nil {
		t.Fatalf("AnswerHandshake failed: %v", err)
	}
}

func TestHandshake_RejectsWrongEcho(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		var hello Hello
		if err := ReadMessage(server, TypeHello, &hello); err != nil {
			return
		}
		_ = WriteMessage(server, TypeHello, Hello{Token: "not-the-token"})
	}()

	if _, err := Handshake(client); err == nil {
		t.Fatalf("expected error for mismatched echo, got nil")
	}
}
