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

package session_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/session"
)

var _ = Describe("Store", func() {
	var store *session.Store

	BeforeEach(func() {
		store = session.New(session.Options{Secret: []byte("top-secret")}, nil)
	})

	It("defaults the cookie name to pode.sid", func() {
		Expect(store.CookieName()).To(Equal(session.DefaultCookieName))
	})

	It("resolves a freshly issued signed id", func() {
		sess, signed := store.NewSession("")
		resolved, err := store.Resolve(signed, "")
		Expect(err).To(BeNil())
		Expect(resolved.ID).To(Equal(sess.ID))
	})

	It("rejects a tampered signature", func() {
		_, signed := store.NewSession("")
		_, err := store.Resolve(signed+"x", "")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorBadSignature)).To(BeTrue())
	})

	It("rejects a signature produced with a different secret", func() {
		_, signed := store.NewSession("")
		other := session.New(session.Options{Secret: []byte("different")}, nil)
		_, err := other.Resolve(signed, "")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorBadSignature)).To(BeTrue())
	})

	It("expires a session once now - lastUse exceeds duration", func() {
		store = session.New(session.Options{Secret: []byte("s"), Duration: time.Millisecond}, nil)
		_, signed := store.NewSession("")
		time.Sleep(5 * time.Millisecond)

		_, err := store.Resolve(signed, "")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorExpired)).To(BeTrue())
	})

	It("revokes the strict binding mismatch", func() {
		store = session.New(session.Options{Secret: []byte("s"), Strict: true}, nil)
		bind := session.BindHash("1.2.3.4", "curl/8")
		_, signed := store.NewSession(bind)

		_, err := store.Resolve(signed, session.BindHash("5.6.7.8", "curl/8"))
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorStrictMismatch)).To(BeTrue())

		_, err = store.Resolve(signed, bind)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorUnknownSession)).To(BeTrue())
	})

	It("extends lastUse on access when Extend is set", func() {
		store = session.New(session.Options{Secret: []byte("s"), Extend: true, Duration: 50 * time.Millisecond}, nil)
		_, signed := store.NewSession("")

		time.Sleep(30 * time.Millisecond)
		_, err := store.Resolve(signed, "")
		Expect(err).To(BeNil())

		time.Sleep(30 * time.Millisecond)
		_, err = store.Resolve(signed, "")
		Expect(err).To(BeNil(), "extended session should still be valid past the original duration")
	})

	It("removes a session on Revoke", func() {
		sess, signed := store.NewSession("")
		store.Revoke(sess.ID)

		_, err := store.Resolve(signed, "")
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(session.ErrorUnknownSession)).To(BeTrue())
	})

	It("caches an auth slot in the session data bag", func() {
		sess, _ := store.NewSession("")
		store.Save(sess, func(s *session.Session) {
			s.Auth = &session.AuthSlot{User: "alice", IsAuthenticated: true, Store: true}
		})
		Expect(sess.Auth.IsAuthenticated).To(BeTrue())
		Expect(sess.Auth.User).To(Equal("alice"))
	})
})
