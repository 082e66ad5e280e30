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

// Package reqctx implements the Request Context of spec.md §3: the
// per-connection state machine (New -> Open -> Receiving -> Received ->
// Processing -> respond -> Closed/Error/SslError), generalized from
// nabbar-golib/httpserver/server.go's per-listener server struct (one
// instance per listener there, one per connection here) and
// nabbar-golib/socket/server/tcp's open-connection lifecycle vocabulary.
package reqctx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorBadTransition liberr.CodeError = iota + liberr.MinPkgReqCtx
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgReqCtx, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorBadTransition:
		return "invalid request context state transition"
	default:
		return ""
	}
}

// Type is the finalized protocol kind of a Request Context, per spec.md
// §3's "type ∈ {Unknown, HTTP, WebSocket, SMTP, TCP}".
type Type uint8

const (
	TypeUnknown Type = iota
	TypeHTTP
	TypeWebSocket
	TypeSMTP
	TypeTCP
)

func (t Type) String() string {
	switch t {
	case TypeHTTP:
		return "HTTP"
	case TypeWebSocket:
		return "WebSocket"
	case TypeSMTP:
		return "SMTP"
	case TypeTCP:
		return "TCP"
	default:
		return "Unknown"
	}
}

// State is one step of the Request Context lifecycle.
type State uint8

const (
	StateNew State = iota
	StateOpen
	StateReceiving
	StateReceived
	StateProcessing
	StateError
	StateSslError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateOpen:
		return "Open"
	case StateReceiving:
		return "Receiving"
	case StateReceived:
		return "Received"
	case StateProcessing:
		return "Processing"
	case StateError:
		return "Error"
	case StateSslError:
		return "SslError"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// validTransitions enumerates the legal state graph: New -> Open ->
// Receiving -> Received -> Processing -> (Receiving again, keep-alive) or
// Closed. New, Open and Receiving may also move directly to Error,
// SslError or Closed; Received and Processing to Error or Closed; Error and
// SslError only to Closed; Closed is terminal.
var validTransitions = map[State]map[State]bool{
	StateNew:        {StateOpen: true, StateError: true, StateSslError: true, StateClosed: true},
	StateOpen:       {StateReceiving: true, StateError: true, StateSslError: true, StateClosed: true},
	StateReceiving:  {StateReceived: true, StateError: true, StateSslError: true, StateClosed: true},
	StateReceived:   {StateProcessing: true, StateError: true, StateClosed: true},
	StateProcessing: {StateReceiving: true, StateClosed: true, StateError: true},
	StateError:      {StateClosed: true},
	StateSslError:   {StateClosed: true},
	StateClosed:     {},
}

// Cookie is one pending Set-Cookie to be written onto the response.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	HTTPOnly bool
	Secure   bool
	MaxAge   int
}

// Response is the response builder a handler populates; New starts it at
// 200 with no body, matching an implicit empty success.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Cookies []Cookie
}

func newResponse() *Response {
	return &Response{Status: http.StatusOK, Header: make(http.Header)}
}

// SetCookie queues a cookie to be written with the response.
func (r *Response) SetCookie(c Cookie) {
	r.Cookies = append(r.Cookies, c)
}

// Context is one Request Context: owned exclusively by one worker
// executor for its entire lifetime, per spec.md §3 "Ownership".
type Context struct {
	ID        string
	Conn      net.Conn
	Endpoint  string // owning endpoint's Name/Key
	Timestamp time.Time
	Type      Type

	Request  *http.Request
	Response *Response

	mu    sync.Mutex
	state State
	data  map[string]interface{}
}

// New constructs a Request Context in state New, freshly accepted off conn.
func New(conn net.Conn, endpoint string) *Context {
	return &Context{
		ID:        uuid.NewString(),
		Conn:      conn,
		Endpoint:  endpoint,
		Timestamp: time.Now(),
		Type:      TypeUnknown,
		Response:  newResponse(),
		state:     StateNew,
		data:      make(map[string]interface{}),
	}
}

// State reports the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transition moves the Context to next, rejecting illegal transitions per
// the state graph of spec.md §3.
func (c *Context) Transition(next State) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !validTransitions[c.state][next] {
		return ErrorBadTransition.Error(nil)
	}
	c.state = next
	return nil
}

// Set stores a value in the per-connection data bag.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get reads a value from the per-connection data bag.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// Close transitions to Closed from any non-terminal state and closes the
// underlying connection.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = StateClosed
	}
	c.mu.Unlock()

	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}
