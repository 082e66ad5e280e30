/*
 * MIT License
 *
 * Copyright (c) 2026 Pode authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package websocket implements the spec.md §4.2 WebSocket upgrade handshake
// and RFC 6455 frame codec by hand: no library in the retrieved pack
// provides a WebSocket implementation (see DESIGN.md), so this follows the
// teacher's habit of hand-rolling small wire-format codecs directly on
// net.Conn (nabbar-golib/socket/server/tcp reads/writes raw frames off the
// connection without an intermediate framework).
package websocket

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorBadFrame liberr.CodeError = iota + liberr.MinPkgProtocol
	ErrorFrameTooLarge
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgProtocol, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorBadFrame:
		return "malformed websocket frame"
	case ErrorFrameTooLarge:
		return "websocket frame exceeds maximum size"
	default:
		return ""
	}
}

// magicGUID is RFC 6455's fixed handshake GUID.
const magicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes Sec-WebSocket-Accept per spec.md §4.2: base64(SHA1
// (clientKey || magicGUID)).
func AcceptKey(clientKey string) string {
	sum := sha1.Sum([]byte(clientKey + magicGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// HandshakeResponse builds the §4.2 "101 Switching Protocols" response
// headers, including a server-assigned X-Pode-ClientId.
func HandshakeResponse(clientKey string) (status int, header http.Header, clientID string) {
	clientID = uuid.NewString()
	h := http.Header{}
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Accept", AcceptKey(clientKey))
	h.Set("X-Pode-ClientId", clientID)
	return http.StatusSwitchingProtocols, h, clientID
}

// Opcode is an RFC 6455 frame opcode.
type Opcode uint8

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// Frame is one decoded RFC 6455 frame.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte
}

// MaxFramePayload bounds a single decoded frame's payload size.
const MaxFramePayload = 16 << 20 // 16 MiB

// ReadFrame decodes one RFC 6455 frame from r. Client-to-server frames are
// masked; ReadFrame unmasks automatically when the mask bit is set.
func ReadFrame(r *bufio.Reader) (*Frame, liberr.Error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, ErrorBadFrame.Error(err)
	}

	fin := head[0]&0x80 != 0
	opcode := Opcode(head[0] & 0x0F)
	masked := head[1]&0x80 != 0
	length := uint64(head[1] & 0x7F)

	switch length {
	case 126:
		ext := make([]byte, 2)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, ErrorBadFrame.Error(err)
		}
		length = uint64(binary.BigEndian.Uint16(ext))
	case 127:
		ext := make([]byte, 8)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, ErrorBadFrame.Error(err)
		}
		length = binary.BigEndian.Uint64(ext)
	}

	if length > MaxFramePayload {
		return nil, ErrorFrameTooLarge.Error(nil)
	}

	var maskKey [4]byte
	if masked {
		if _, err := io.ReadFull(r, maskKey[:]); err != nil {
			return nil, ErrorBadFrame.Error(err)
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrorBadFrame.Error(err)
	}

	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	return &Frame{Fin: fin, Opcode: opcode, Payload: payload}, nil
}

// WriteFrame encodes an unmasked server-to-client frame (RFC 6455 forbids
// servers from masking).
func WriteFrame(w io.Writer, opcode Opcode, payload []byte) error {
	var head []byte
	first := byte(0x80) | byte(opcode) // Fin always set; pode does not emit fragmented frames

	switch {
	case len(payload) < 126:
		head = []byte{first, byte(len(payload))}
	case len(payload) <= 0xFFFF:
		head = make([]byte, 4)
		head[0], head[1] = first, 126
		binary.BigEndian.PutUint16(head[2:], uint16(len(payload)))
	default:
		head = make([]byte, 10)
		head[0], head[1] = first, 127
		binary.BigEndian.PutUint64(head[2:], uint64(len(payload)))
	}

	if _, err := w.Write(head); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ErrConnectionClosed names a connection ended by a Close frame. Nothing in
// this package returns it; ReadFrame hands the Close frame itself back.
var ErrConnectionClosed = errors.New("websocket: connection closed")

// CloseFrame builds a Close frame payload carrying a numeric status code.
func CloseFrame(code uint16, reason string) []byte {
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	copy(payload[2:], reason)
	return payload
}

func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", uint8(o))
	}
}
