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

// Package userstore implements the User file of spec.md §6: a JSON array
// of user records with a password hash that is either plain SHA-256 hex
// or HMAC-SHA-256 hex, verified in constant time, grounded on
// nabbar-golib/password's hash-then-compare idiom.
package userstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorReadFile liberr.CodeError = iota + liberr.MinPkgUserStore
	ErrorDecodeFile
	ErrorDuplicateUsername
	ErrorUnknownUsername
	ErrorBadPassword
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgUserStore, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorReadFile:
		return "unable to read user file"
	case ErrorDecodeFile:
		return "unable to decode user file"
	case ErrorDuplicateUsername:
		return "duplicate username in user file"
	case ErrorUnknownUsername:
		return "unknown username"
	case ErrorBadPassword:
		return "password does not match"
	default:
		return ""
	}
}

// Record is one user-file entry. Password holds the stored hash (never the
// cleartext); callers that need to hand a record to application code should
// use Sanitized, which clears it.
type Record struct {
	Username string                 `json:"Username"`
	Name     string                 `json:"Name"`
	Email    string                 `json:"Email"`
	Password string                 `json:"Password"`
	Groups   []string               `json:"Groups,omitempty"`
	Metadata map[string]interface{} `json:"Metadata,omitempty"`
}

// Sanitized returns a copy of r with Password cleared, the shape handed
// back to authentication callers per spec.md §4.5 ("password is removed
// from the returned user record").
func (r Record) Sanitized() Record {
	r.Password = ""
	return r
}

// Store is an in-memory, optionally HMAC-secret-backed user table.
type Store struct {
	mu      sync.RWMutex
	byName  map[string]Record
	hmacKey []byte // nil = plain SHA-256
}

// New builds an empty store. If hmacKey is non-empty, password hashes are
// expected to be HMAC-SHA-256(hmacKey, password) rather than plain
// SHA-256(password), per spec.md §6.
func New(hmacKey []byte) *Store {
	return &Store{byName: make(map[string]Record), hmacKey: hmacKey}
}

// LoadFile reads a JSON array of Record from path and builds a new Store
// from it, rejecting duplicate usernames.
func LoadFile(path string, hmacKey []byte) (*Store, liberr.Error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrorReadFile.Error(err)
	}
	return LoadBytes(raw, hmacKey)
}

// LoadBytes is LoadFile without the filesystem read, useful for tests and
// for config sources that already hold the document in memory.
func LoadBytes(raw []byte, hmacKey []byte) (*Store, liberr.Error) {
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, ErrorDecodeFile.Error(err)
	}

	s := New(hmacKey)
	for _, r := range records {
		if _, exists := s.byName[r.Username]; exists {
			return nil, ErrorDuplicateUsername.Error(nil)
		}
		s.byName[r.Username] = r
	}
	return s, nil
}

// Hash computes the expected stored hash for a cleartext password: plain
// SHA-256 hex with no HMAC secret configured, HMAC-SHA-256 hex otherwise.
func (s *Store) Hash(cleartext string) string {
	if len(s.hmacKey) == 0 {
		sum := sha256.Sum256([]byte(cleartext))
		return hex.EncodeToString(sum[:])
	}

	mac := hmac.New(sha256.New, s.hmacKey)
	mac.Write([]byte(cleartext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify looks up username and compares its stored hash against cleartext
// in constant time, returning the record with Password cleared on success.
func (s *Store) Verify(username, cleartext string) (Record, liberr.Error) {
	s.mu.RLock()
	rec, ok := s.byName[username]
	s.mu.RUnlock()

	if !ok {
		return Record{}, ErrorUnknownUsername.Error(nil)
	}

	want := s.Hash(cleartext)
	if subtle.ConstantTimeCompare([]byte(want), []byte(rec.Password)) != 1 {
		return Record{}, ErrorBadPassword.Error(nil)
	}

	return rec.Sanitized(), nil
}

// Lookup returns the sanitized record for username without checking a
// password, used by validators that have already authenticated the
// identity (e.g. client certificate, LDAP) and only need group/metadata.
func (s *Store) Lookup(username string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byName[username]
	if !ok {
		return Record{}, false
	}
	return rec.Sanitized(), true
}

// Put inserts or replaces a record, used by tests and by admin endpoints
// layered on top of the store.
func (s *Store) Put(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[r.Username] = r
}

// Len reports the number of users currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName)
}
