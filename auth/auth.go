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

// Package auth implements the Authentication Core of spec.md §4.5: named
// auth methods composing a scheme extractor, a validator and an optional
// post-validator, with challenge composition and session attachment.
package auth

import (
	"fmt"
	"sync"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorUnknownMethod liberr.CodeError = iota + liberr.MinPkgAuth
	ErrorDuplicateMethod
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgAuth, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorUnknownMethod:
		return "unknown auth method"
	case ErrorDuplicateMethod:
		return "auth method already registered"
	default:
		return ""
	}
}

// Scheme names one of the built-in extraction schemes, or "Custom".
type Scheme string

const (
	SchemeBasic             Scheme = "Basic"
	SchemeBearer            Scheme = "Bearer"
	SchemeDigest            Scheme = "Digest"
	SchemeForm              Scheme = "Form"
	SchemeClientCertificate Scheme = "ClientCertificate"
	SchemeCustom            Scheme = "Custom"
)

// Failure is the {Message, Code, Challenge, Headers} shape spec.md §4.5
// returns from an extractor or validator on anything but success.
type Failure struct {
	Message   string
	Code      int
	Challenge string
	Headers   map[string]string
}

// Outcome is the validator's success/failure result.
type Outcome struct {
	User    interface{}
	Failure *Failure
}

// Extractor parses raw request material into scheme-specific credentials,
// or returns a Failure describing why extraction itself failed (missing
// header, malformed value) before a validator ever runs.
type Extractor func(req Request) (credentials interface{}, failure *Failure)

// Validator takes extracted credentials and resolves an identity.
type Validator func(credentials interface{}) Outcome

// PostValidator runs after Validator with the original credentials and its
// outcome, to enforce scheme-specific cross-checks (Digest response hash,
// Bearer scope) that need both pieces at once.
type PostValidator func(credentials interface{}, outcome Outcome) *Failure

// Request is the minimal request surface an Extractor needs, kept
// independent of any HTTP framework so auth/ has no gin dependency; the
// middleware layer adapts a *gin.Context into this shape.
type Request struct {
	Method      string
	Header      map[string][]string
	FormValue   func(key string) string
	TLSPeerCert interface{} // *x509.Certificate when present; ExtractClientCertificate type-asserts it
	URI         string
}

// Method is a named (scheme, validator, options) triple, spec.md §3 "Auth
// Method".
type Method struct {
	Name    string
	Scheme  Scheme
	Realm   string
	Extract Extractor
	Validate Validator
	Post    PostValidator

	Sessionless    bool
	FailureURL     string
	FailureMessage string
	SuccessURL     string
	PassEvent      bool

	// Scopes, when non-empty, restricts a Bearer method per spec.md's
	// "Bearer scope check".
	Scopes []string
}

// Authenticate runs Extract -> Validate -> Post for a Method, returning the
// resolved Outcome. A non-nil Failure on Outcome means the caller should
// challenge/reject; ComposeChallenge turns it into a WWW-Authenticate value.
func Authenticate(m *Method, req Request) Outcome {
	creds, failure := m.Extract(req)
	if failure != nil {
		return Outcome{Failure: failure}
	}

	outcome := m.Validate(creds)
	if outcome.Failure != nil {
		return outcome
	}

	if m.Post != nil {
		if failure := m.Post(creds, outcome); failure != nil {
			return Outcome{Failure: failure}
		}
	}

	return outcome
}

// ComposeChallenge implements spec.md §4.5 "Challenge composition": absent
// a caller-supplied WWW-Authenticate, build
// `<SchemeName> realm="<Realm>"[, <challenge>]`.
func ComposeChallenge(m *Method, challenge string) string {
	base := fmt.Sprintf(`%s realm="%s"`, m.Scheme, m.Realm)
	if challenge == "" {
		return base
	}
	return base + ", " + challenge
}

// Registry is the server-wide, configure-once-read-many set of auth
// methods (spec.md §5 "the authentication registry... mutated only during
// the setup phase").
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*Method
}

func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]*Method)}
}

func (r *Registry) Register(m *Method) liberr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.methods[m.Name]; exists {
		return ErrorDuplicateMethod.Error(nil)
	}
	r.methods[m.Name] = m
	return nil
}

func (r *Registry) Get(name string) (*Method, liberr.Error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.methods[name]
	if !ok {
		return nil, ErrorUnknownMethod.Error(nil)
	}
	return m, nil
}
