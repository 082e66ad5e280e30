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

package auth_test

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/auth"
)

var _ = Describe("Basic scheme", func() {
	It("extracts username/password from a well-formed header", func() {
		raw := base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
		req := auth.Request{Header: map[string][]string{"Authorization": {"Basic " + raw}}}

		creds, failure := auth.ExtractBasic("")(req)
		Expect(failure).To(BeNil())
		Expect(creds).To(Equal(auth.Credentials{"username": "alice", "password": "hunter2"}))
	})

	It("returns 401 when the header is absent", func() {
		_, failure := auth.ExtractBasic("")(auth.Request{})
		Expect(failure).ToNot(BeNil())
		Expect(failure.Code).To(Equal(401))
	})

	It("returns 400 on a tag mismatch", func() {
		raw := base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
		req := auth.Request{Header: map[string][]string{"Authorization": {"Bearer " + raw}}}
		_, failure := auth.ExtractBasic("")(req)
		Expect(failure).ToNot(BeNil())
		Expect(failure.Code).To(Equal(400))
	})

	It("returns 400 on malformed base64", func() {
		req := auth.Request{Header: map[string][]string{"Authorization": {"Basic not-base64!!"}}}
		_, failure := auth.ExtractBasic("")(req)
		Expect(failure).ToNot(BeNil())
		Expect(failure.Code).To(Equal(400))
	})
})

var _ = Describe("Bearer scheme", func() {
	It("extracts the token", func() {
		req := auth.Request{Header: map[string][]string{"Authorization": {"Bearer abc123"}}}
		creds, failure := auth.ExtractBearer()(req)
		Expect(failure).To(BeNil())
		Expect(creds).To(Equal(auth.BearerToken("abc123")))
	})

	It("carries invalid_request on malformed header", func() {
		req := auth.Request{Header: map[string][]string{"Authorization": {"Bearer"}}}
		_, failure := auth.ExtractBearer()(req)
		Expect(failure).ToNot(BeNil())
		Expect(failure.Challenge).To(ContainSubstring("invalid_request"))
	})
})

var _ = Describe("Bearer scope check", func() {
	It("passes when no scopes are declared", func() {
		Expect(auth.CheckBearerScope(nil, "")).To(BeNil())
	})

	It("fails with insufficient_scope when declared but token scope is empty", func() {
		f := auth.CheckBearerScope([]string{"read"}, "")
		Expect(f).ToNot(BeNil())
		Expect(f.Code).To(Equal(403))
		Expect(f.Challenge).To(ContainSubstring("insufficient_scope"))
	})

	It("fails when token scope is not in the declared set", func() {
		f := auth.CheckBearerScope([]string{"read", "write"}, "admin")
		Expect(f).ToNot(BeNil())
		Expect(f.Code).To(Equal(403))
	})

	It("passes when token scope is declared", func() {
		Expect(auth.CheckBearerScope([]string{"read", "write"}, "write")).To(BeNil())
	})
})

var _ = Describe("Digest scheme", func() {
	It("extracts all required fields", func() {
		header := `Digest username="alice", uri="/x", nonce="n", nc="00000001", cnonce="c", qop="auth", response="r"`
		req := auth.Request{Header: map[string][]string{"Authorization": {header}}}

		creds, failure := auth.ExtractDigest()(req)
		Expect(failure).To(BeNil())
		c := creds.(auth.Credentials)
		Expect(c["username"]).To(Equal("alice"))
		Expect(c["uri"]).To(Equal("/x"))
	})

	It("returns 400 when a required field is missing", func() {
		header := `Digest username="alice", uri="/x"`
		req := auth.Request{Header: map[string][]string{"Authorization": {header}}}
		_, failure := auth.ExtractDigest()(req)
		Expect(failure).ToNot(BeNil())
		Expect(failure.Code).To(Equal(400))
	})

	It("verifies the textbook HA1/HA2/response chain", func() {
		ha1 := auth.DigestHA1("alice", "pode", "hunter2")
		ha2 := auth.DigestHA2("GET", "/x")
		response := auth.DigestExpected(ha1, "nonce1", "00000001", "cnonce1", "auth", ha2)

		ok := auth.VerifyDigest("alice", "pode", "hunter2", "GET", "/x", "nonce1", "00000001", "cnonce1", "auth", response)
		Expect(ok).To(BeTrue())
	})

	It("rejects a tampered response", func() {
		ok := auth.VerifyDigest("alice", "pode", "hunter2", "GET", "/x", "nonce1", "00000001", "cnonce1", "auth", "deadbeef")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Challenge composition", func() {
	It("builds SchemeName realm=... with no extra challenge", func() {
		m := &auth.Method{Name: "basic", Scheme: auth.SchemeBasic, Realm: "pode"}
		Expect(auth.ComposeChallenge(m, "")).To(Equal(`Basic realm="pode"`))
	})

	It("appends the extra challenge when present", func() {
		m := &auth.Method{Name: "digest", Scheme: auth.SchemeDigest, Realm: "pode"}
		got := auth.ComposeChallenge(m, `qop="auth"`)
		Expect(got).To(Equal(`Digest realm="pode", qop="auth"`))
	})
})

var _ = Describe("Registry", func() {
	It("registers and fetches a method", func() {
		r := auth.NewRegistry()
		m := &auth.Method{Name: "basic"}
		Expect(r.Register(m)).To(BeNil())

		got, err := r.Get("basic")
		Expect(err).To(BeNil())
		Expect(got).To(BeIdenticalTo(m))
	})

	It("rejects a duplicate name", func() {
		r := auth.NewRegistry()
		Expect(r.Register(&auth.Method{Name: "basic"})).To(BeNil())
		err := r.Register(&auth.Method{Name: "basic"})
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(auth.ErrorDuplicateMethod)).To(BeTrue())
	})

	It("reports an unknown method", func() {
		r := auth.NewRegistry()
		_, err := r.Get("nope")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(auth.ErrorUnknownMethod)).To(BeTrue())
	})
})

var _ = Describe("Authenticate", func() {
	It("runs extract, validate and post in order, short-circuiting on extract failure", func() {
		m := &auth.Method{
			Extract: func(auth.Request) (interface{}, *auth.Failure) {
				return nil, &auth.Failure{Code: 401, Message: "no header"}
			},
			Validate: func(interface{}) auth.Outcome {
				Fail("validate must not run when extract fails")
				return auth.Outcome{}
			},
		}

		outcome := auth.Authenticate(m, auth.Request{})
		Expect(outcome.Failure).ToNot(BeNil())
		Expect(outcome.Failure.Code).To(Equal(401))
	})

	It("invokes the post-validator with credentials and outcome", func() {
		var sawUser interface{}

		m := &auth.Method{
			Extract: func(auth.Request) (interface{}, *auth.Failure) {
				return auth.Credentials{"username": "alice"}, nil
			},
			Validate: func(creds interface{}) auth.Outcome {
				return auth.Outcome{User: "alice"}
			},
			Post: func(creds interface{}, outcome auth.Outcome) *auth.Failure {
				sawUser = outcome.User
				return nil
			},
		}

		outcome := auth.Authenticate(m, auth.Request{})
		Expect(outcome.Failure).To(BeNil())
		Expect(sawUser).To(Equal("alice"))
	})
})
