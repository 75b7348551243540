// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// package wire implements the framed message protocol spoken on both network
// legs: vehicle <-> relay and relay <-> cloud server. Every frame is a 4-byte
// big-endian length prefix followed by a JSON envelope. The envelope carries
// a type tag and the raw message payload.
package wire // import "github.com/toeirei/waymaster/internal/wire"

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/toeirei/waymaster/internal/model"
)

// MaxFrameSize caps a single frame at 1 MiB. Topologies are small; anything
// larger is a protocol error or a confused peer.
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge is returned when a peer announces a frame above MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// Message type tags carried in the envelope.
const (
	TypeHello           = "hello"
	TypeWeightsRequest  = "weights_request"
	TypeWeightsResponse = "weights_response"
	TypeRouteRequest    = "route_request"
	TypeRouteResponse   = "route_response"
	TypeError           = "error_response"
)

// Error codes carried in an ErrorResponse.
const (
	CodeBadRequest      = "bad_request"
	CodeUnknownWaypoint = "unknown_waypoint"
	CodeNoRoute         = "no_route"
	CodeInternal        = "internal"
)

// Envelope is the outer JSON document of every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello is the connectivity handshake. The initiating side sends a token
// and the peer echoes the identical message back.
type Hello struct {
	Token string `json:"token"`
}

// WeightsRequest asks the cloud server for the full set of edge weights.
type WeightsRequest struct{}

// WeightsResponse carries the complete topology.
type WeightsResponse struct {
	Edges []model.Edge `json:"edges"`
}

// RouteRequest asks a relay for the shortest path between two waypoints.
// ID correlates the response and shows up in relay logs.
type RouteRequest struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// RouteResponse is the successful answer to a RouteRequest.
type RouteResponse struct {
	ID   string   `json:"id"`
	Hops []string `json:"hops"`
	Cost int      `json:"cost"`
}

// ErrorResponse is the typed failure answer to any request.
type ErrorResponse struct {
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteMessage marshals the payload, wraps it in an envelope of the given
// type and writes it as a single length-prefixed frame.
func WriteMessage(w io.Writer, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wire: failed to marshal %s payload: %w", msgType, err)
	}
	env, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return fmt.Errorf("wire: failed to marshal envelope: %w", err)
	}
	if len(env) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(env)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: failed to write frame header: %w", err)
	}
	if _, err := w.Write(env); err != nil {
		return fmt.Errorf("wire: failed to write frame body: %w", err)
	}
	return nil
}

// ReadEnvelope reads a single frame and returns the decoded envelope.
// io.EOF is returned unwrapped when the connection closes cleanly between
// frames so callers can end their read loops.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: failed to read frame header: %w", err)
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: failed to read frame body: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("wire: failed to decode envelope: %w", err)
	}
	return &env, nil
}

// ReadMessage reads a frame, checks its type tag and unmarshals the payload
// into out.
func ReadMessage(r io.Reader, wantType string, out any) error {
	env, err := ReadEnvelope(r)
	if err != nil {
		return err
	}
	if env.Type != wantType {
		if env.Type == TypeError {
			var er ErrorResponse
			if jerr := json.Unmarshal(env.Payload, &er); jerr == nil {
				return &RemoteError{Code: er.Code, Message: er.Message}
			}
		}
		return fmt.Errorf("wire: expected %s frame, got %s", wantType, env.Type)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("wire: failed to decode %s payload: %w", wantType, err)
	}
	return nil
}

// ReadPayload unmarshals an already-read envelope's payload into out.
func ReadPayload(env *Envelope, out any) error {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("wire: failed to decode %s payload: %w", env.Type, err)
	}
	return nil
}

// RemoteError is an ErrorResponse surfaced to the caller as a Go error.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%s): %s", e.Code, e.Message)
}
