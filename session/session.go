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

// Package session implements the Session store of spec.md §4.6: a signed
// opaque id delivered by cookie (default) or header, backing an in-memory
// data bag with TTL/extend/strict semantics, guarded by the server-wide
// Lockable (state.Lockable) so it shares mutual exclusion with Shared
// State and the scheduler's timer/schedule registries per spec.md §5.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	liberr "github.com/pode-server/pode/errors"
	"github.com/pode-server/pode/state"
)

const (
	ErrorBadSignature liberr.CodeError = iota + liberr.MinPkgSession
	ErrorExpired
	ErrorStrictMismatch
	ErrorUnknownSession
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgSession, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorBadSignature:
		return "session id signature does not verify"
	case ErrorExpired:
		return "session has expired"
	case ErrorStrictMismatch:
		return "session strict binding mismatch"
	case ErrorUnknownSession:
		return "unknown session id"
	default:
		return ""
	}
}

// DefaultCookieName is the default session cookie/header name, per
// spec.md §6: "pode.sid=<signedId>; Path=/; HttpOnly".
const DefaultCookieName = "pode.sid"

// AuthSlot is the cached authentication outcome attached to a session on
// successful auth, per spec.md §4.5 "Session attachment": once set, the
// pipeline skips the scheme/validator for subsequent requests on this
// session while it remains valid.
type AuthSlot struct {
	User            interface{}
	IsAuthenticated bool
	Store           bool
}

// Session is one server-side session record.
type Session struct {
	ID       string
	Data     map[string]interface{}
	Auth     *AuthSlot
	Created  time.Time
	LastUse  time.Time
	Duration time.Duration
	Extend   bool
	Strict   bool
	bind     string // hash(remoteAddress + userAgent) when Strict is set
}

// Options configure a Store, mirroring spec.md §4.6's configurable session
// fields (duration/extend/strict/delivery).
type Options struct {
	Secret     []byte
	Name       string // cookie or header name; defaults to DefaultCookieName
	UseHeaders bool
	Duration   time.Duration // 0 = spec.md default of 20 minutes
	Extend     bool
	Strict     bool
}

// Store is the in-memory session table.
type Store struct {
	opts Options
	lock *state.Lockable
	data map[string]*Session
}

// New builds a Store guarded by lockable (typically the Server Context's
// shared state.Lockable, so session mutation serializes with the rest of
// spec.md §5's shared-resource policy).
func New(opts Options, lockable *state.Lockable) *Store {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.Duration <= 0 {
		opts.Duration = 20 * time.Minute
	}
	if lockable == nil {
		lockable = &state.Lockable{}
	}
	return &Store{opts: opts, lock: lockable, data: make(map[string]*Session)}
}

// CookieName reports the delivery cookie/header name.
func (s *Store) CookieName() string { return s.opts.Name }

// UsesHeaders reports whether the session id travels in a header instead
// of a cookie.
func (s *Store) UsesHeaders() bool { return s.opts.UseHeaders }

// sign produces base64url(id) + "." + hex(hmac-sha256(secret, id)), per
// spec.md §4.6 "Sessions identified by sign(secret, randomId)".
func sign(secret []byte, id string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString([]byte(id)) + "." + hex.EncodeToString(mac.Sum(nil))
}

// verify splits a signed id and checks its HMAC, returning the raw id.
func verify(secret []byte, signed string) (string, bool) {
	idx := strings.LastIndex(signed, ".")
	if idx < 0 {
		return "", false
	}

	encID, sig := signed[:idx], signed[idx+1:]
	raw, err := base64.RawURLEncoding.DecodeString(encID)
	if err != nil {
		return "", false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(raw)
	want := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(want), []byte(sig)) != 1 {
		return "", false
	}
	return string(raw), true
}

// newRawID generates a random session id before signing.
func newRawID() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// BindHash computes the strict-mode binding, hash(remoteAddress+userAgent).
func BindHash(remoteAddress, userAgent string) string {
	sum := sha256.Sum256([]byte(remoteAddress + userAgent))
	return hex.EncodeToString(sum[:])
}

// NewSession allocates a fresh, empty session and returns it plus the signed id
// to stamp onto the response (cookie or header per UsesHeaders).
func (s *Store) NewSession(bind string) (*Session, string) {
	raw := newRawID()
	now := time.Now()

	sess := &Session{
		ID:       raw,
		Data:     make(map[string]interface{}),
		Created:  now,
		LastUse:  now,
		Duration: s.opts.Duration,
		Extend:   s.opts.Extend,
		Strict:   s.opts.Strict,
		bind:     bind,
	}

	release := s.lock.Acquire()
	s.data[raw] = sess
	release()

	return sess, sign(s.opts.Secret, raw)
}

// Resolve verifies signedID, looks up the session, and checks the
// validity invariant of spec.md §4.2 Session: signature verifies AND
// (now - lastUse <= duration) AND (not strict OR binding matches). On
// success and Extend, lastUse is reset.
func (s *Store) Resolve(signedID, bind string) (*Session, liberr.Error) {
	raw, ok := verify(s.opts.Secret, signedID)
	if !ok {
		return nil, ErrorBadSignature.Error(nil)
	}

	release := s.lock.Acquire()
	defer release()

	sess, ok := s.data[raw]
	if !ok {
		return nil, ErrorUnknownSession.Error(nil)
	}

	if time.Since(sess.LastUse) > sess.Duration {
		delete(s.data, raw)
		return nil, ErrorExpired.Error(nil)
	}

	if sess.Strict && sess.bind != bind {
		delete(s.data, raw)
		return nil, ErrorStrictMismatch.Error(nil)
	}

	if sess.Extend {
		sess.LastUse = time.Now()
	}

	return sess, nil
}

// Revoke deletes a session outright, used by logout-flagged routes per
// spec.md §4.5 "a logout-flagged route removes the slot and revokes the
// session".
func (s *Store) Revoke(id string) {
	release := s.lock.Acquire()
	defer release()
	delete(s.data, id)
}

// Save writes data into an existing session's bag, taking the lock once
// for the whole update.
func (s *Store) Save(sess *Session, mutate func(*Session)) {
	release := s.lock.Acquire()
	defer release()
	mutate(sess)
}

// Len reports the number of live sessions (tests and diagnostics only;
// expired entries are pruned lazily on Resolve).
func (s *Store) Len() int {
	release := s.lock.AcquireRead()
	defer release()
	return len(s.data)
}
