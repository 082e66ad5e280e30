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

// Package smtp implements the spec.md §4.2 SMTP command-dialog state
// machine: greet, HELO/EHLO, MAIL FROM, one or more RCPT TO, DATA until
// CRLF.CRLF, QUIT, RSET. Hand-rolled directly against the command grammar,
// following the same small-dialog-over-net.Conn style the teacher uses for
// its raw socket listeners (nabbar-golib/socket/server/tcp) rather than
// reaching for net/smtp, which is a client, not a server, implementation.
package smtp

import (
	"strings"

	liberr "github.com/pode-server/pode/errors"
)

// smtpCodeBase shares the MinPkgProtocol block with protocol/websocket;
// offsetting by 50 keeps the two packages' iota blocks from colliding when
// both are linked into the same binary (the errors package's message lookup
// tries every registered block and skips ones whose message function
// returns "").
const smtpCodeBase = liberr.MinPkgProtocol + 50

const (
	ErrorBadSequence liberr.CodeError = smtpCodeBase + iota
	ErrorUnknownCommand
)

func init() {
	liberr.RegisterMessage(smtpCodeBase, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorBadSequence:
		return "command out of sequence for the current SMTP session state"
	case ErrorUnknownCommand:
		return "unrecognized SMTP command"
	default:
		return ""
	}
}

// State is one step of the SMTP command-dialog state machine.
type State uint8

const (
	StateGreeted State = iota
	StateHelo
	StateMailFrom
	StateRcptTo
	StateData
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateGreeted:
		return "Greeted"
	case StateHelo:
		return "Helo"
	case StateMailFrom:
		return "MailFrom"
	case StateRcptTo:
		return "RcptTo"
	case StateData:
		return "Data"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Greeting is the banner line sent immediately on accept (spec.md §4.2:
// "greet with 220").
const Greeting = "220 pode smtp service ready"

// Message is one complete dispatchable event, surfaced once DATA terminates
// with the bare "." line.
type Message struct {
	From string
	To   []string
	Data string
}

// Session drives one SMTP connection's command dialog. It is not
// goroutine-safe; one worker owns a Session for its lifetime, matching the
// Request Context single-owner model.
type Session struct {
	state    State
	helloArg string
	from     string
	to       []string
	dataBuf  strings.Builder
}

// NewSession starts a session in state Greeted; the caller is responsible
// for writing Greeting to the connection.
func NewSession() *Session {
	return &Session{state: StateGreeted}
}

func (s *Session) State() State { return s.state }

// Reply is one line the caller should write back to the client.
type Reply struct {
	Code int
	Text string
	// Message is non-nil only on the reply that terminates a DATA block.
	Message *Message
}

func reply(code int, text string) Reply {
	return Reply{Code: code, Text: text}
}

// Handle advances the dialog by one command line (without the trailing
// CRLF) and returns the reply to send back.
func (s *Session) Handle(line string) (Reply, liberr.Error) {
	if s.state == StateData {
		return s.handleDataLine(line), nil
	}

	cmd, arg := splitCommand(line)
	switch strings.ToUpper(cmd) {
	case "HELO", "EHLO":
		s.helloArg = arg
		s.state = StateHelo
		return reply(250, "pode hello "+arg), nil
	case "MAIL":
		if s.state != StateHelo && s.state != StateGreeted {
			return Reply{}, ErrorBadSequence.Error(nil)
		}
		from, ok := extractAddress(arg, "FROM:")
		if !ok {
			return reply(501, "syntax error in MAIL FROM command"), nil
		}
		s.from = from
		s.to = nil
		s.state = StateMailFrom
		return reply(250, "OK"), nil
	case "RCPT":
		if s.state != StateMailFrom && s.state != StateRcptTo {
			return Reply{}, ErrorBadSequence.Error(nil)
		}
		to, ok := extractAddress(arg, "TO:")
		if !ok {
			return reply(501, "syntax error in RCPT TO command"), nil
		}
		s.to = append(s.to, to)
		s.state = StateRcptTo
		return reply(250, "OK"), nil
	case "DATA":
		if s.state != StateRcptTo {
			return Reply{}, ErrorBadSequence.Error(nil)
		}
		s.state = StateData
		s.dataBuf.Reset()
		return reply(354, "start mail input; end with <CRLF>.<CRLF>"), nil
	case "RSET":
		s.reset()
		return reply(250, "OK"), nil
	case "QUIT":
		s.state = StateClosed
		return reply(221, "pode smtp service closing transmission channel"), nil
	case "NOOP":
		return reply(250, "OK"), nil
	default:
		return Reply{}, ErrorUnknownCommand.Error(nil)
	}
}

func (s *Session) handleDataLine(line string) Reply {
	if line == "." {
		msg := &Message{From: s.from, To: append([]string{}, s.to...), Data: s.dataBuf.String()}
		s.reset()
		return Reply{Code: 250, Text: "OK: message accepted", Message: msg}
	}
	// Dot-stuffed lines ("..foo") are unescaped per RFC 5321 §4.5.2.
	if strings.HasPrefix(line, "..") {
		line = line[1:]
	}
	s.dataBuf.WriteString(line)
	s.dataBuf.WriteString("\r\n")
	return Reply{}
}

// reset returns the session to the HELO state, per spec.md §4.2's "RSET
// returns the session to the HELO state", and clears the transaction so the
// connection can process another message (CanProcess).
func (s *Session) reset() {
	s.from = ""
	s.to = nil
	s.dataBuf.Reset()
	if s.helloArg != "" {
		s.state = StateHelo
	} else {
		s.state = StateGreeted
	}
}

// CanProcess reports whether the session is ready to begin another
// transaction (spec.md §4.2's "the connection is resettable for another
// message").
func (s *Session) CanProcess() bool {
	return s.state == StateHelo || s.state == StateGreeted
}

func splitCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// extractAddress pulls the bracketed address out of "FROM:<addr>" or
// "TO:<addr>" argument syntax (case-insensitive on the keyword prefix).
func extractAddress(arg, keyword string) (string, bool) {
	if len(arg) < len(keyword) || !strings.EqualFold(arg[:len(keyword)], keyword) {
		return "", false
	}
	rest := strings.TrimSpace(arg[len(keyword):])
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "<"), ">")
	if rest == "" {
		return "", false
	}
	return rest, true
}
