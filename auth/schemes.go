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

package auth

import (
	"crypto/md5"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Credentials is the generic key=value bag extracted for Basic/Digest/Form
// schemes (username, password, and the Digest challenge-response fields).
type Credentials map[string]string

// BearerToken is the credential extracted for the Bearer scheme.
type BearerToken string

// ClientCertCredential wraps the verified peer certificate for the
// ClientCertificate scheme.
type ClientCertCredential struct {
	Cert *x509.Certificate
}

func headerValue(req Request, name string) string {
	for k, v := range req.Header {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// ExtractBasic implements spec.md §4.5's Basic row: "Authorization: <tag>
// base64(user:pass)", tag defaulting to "Basic".
func ExtractBasic(tag string) Extractor {
	if tag == "" {
		tag = "Basic"
	}

	return func(req Request) (interface{}, *Failure) {
		header := headerValue(req, "Authorization")
		if header == "" {
			return nil, &Failure{Code: 401, Message: "missing Authorization header"}
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], tag) {
			return nil, &Failure{Code: 400, Message: "malformed Authorization header"}
		}

		decoded, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, &Failure{Code: 400, Message: "invalid base64 in Authorization header"}
		}

		userPass := strings.SplitN(string(decoded), ":", 2)
		if len(userPass) != 2 {
			return nil, &Failure{Code: 400, Message: "malformed user:pass pair"}
		}

		return Credentials{"username": userPass[0], "password": userPass[1]}, nil
	}
}

// ExtractBearer implements the Bearer row: "Authorization: Bearer <token>".
func ExtractBearer() Extractor {
	return func(req Request) (interface{}, *Failure) {
		header := headerValue(req, "Authorization")
		if header == "" {
			return nil, &Failure{Code: 400, Challenge: `error="invalid_request"`, Message: "missing Authorization header"}
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return nil, &Failure{Code: 400, Challenge: `error="invalid_request"`, Message: "malformed Authorization header"}
		}

		return BearerToken(parts[1]), nil
	}
}

// digestFields are the required Digest challenge-response components per
// spec.md §4.5.
var digestFields = []string{"username", "uri", "nonce", "nc", "cnonce", "qop", "response"}

// ExtractDigest implements the Digest row: "Authorization: Digest
// key=value, ...", requiring username/uri/nonce/nc/cnonce/qop/response.
func ExtractDigest() Extractor {
	return func(req Request) (interface{}, *Failure) {
		header := headerValue(req, "Authorization")
		if header == "" {
			return nil, &Failure{
				Code:      401,
				Challenge: `qop="auth", algorithm="MD5", nonce="` + newNonce() + `"`,
				Message:   "missing Authorization header",
			}
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Digest") {
			return nil, &Failure{Code: 400, Message: "malformed Authorization header"}
		}

		fields := parseDigestPairs(parts[1])

		for _, required := range digestFields {
			if _, ok := fields[required]; !ok {
				return nil, &Failure{Code: 400, Message: fmt.Sprintf("missing digest field %q", required)}
			}
		}

		// Carried alongside the challenge-response fields so a Validator can
		// recompute HA2 = MD5(METHOD:uri) without a second request.Method plumb.
		fields["method"] = req.Method

		return Credentials(fields), nil
	}
}

func parseDigestPairs(s string) Credentials {
	out := make(Credentials)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
	}
	return out
}

func newNonce() string {
	return fmt.Sprintf("%x", time.Now().UnixNano())
}

// ExtractForm implements the Form row: POST body fields, defaulting to
// "username"/"password".
func ExtractForm(userField, passField string) Extractor {
	if userField == "" {
		userField = "username"
	}
	if passField == "" {
		passField = "password"
	}

	return func(req Request) (interface{}, *Failure) {
		if req.FormValue == nil {
			return nil, &Failure{Code: 401, Message: "no form data available"}
		}

		user := req.FormValue(userField)
		pass := req.FormValue(passField)
		if user == "" || pass == "" {
			return nil, &Failure{Code: 401, Message: "missing username or password"}
		}

		return Credentials{"username": user, "password": pass}, nil
	}
}

// ExtractClientCertificate implements the Client Certificate row: the TLS
// peer certificate, rejecting absent/expired/not-yet-valid certs.
func ExtractClientCertificate() Extractor {
	return func(req Request) (interface{}, *Failure) {
		cert, ok := req.TLSPeerCert.(*x509.Certificate)
		if !ok || cert == nil {
			return nil, &Failure{Code: 401, Message: "no client certificate presented"}
		}

		now := time.Now()
		if now.Before(cert.NotBefore) {
			return nil, &Failure{Code: 401, Message: "client certificate not yet valid"}
		}
		if now.After(cert.NotAfter) {
			return nil, &Failure{Code: 401, Message: "client certificate expired"}
		}

		return ClientCertCredential{Cert: cert}, nil
	}
}

// DigestHA1 computes MD5(username:realm:password).
func DigestHA1(username, realm, password string) string {
	return md5Hex(username + ":" + realm + ":" + password)
}

// DigestHA2 computes MD5(METHOD:uri).
func DigestHA2(method, uri string) string {
	return md5Hex(method + ":" + uri)
}

// DigestExpected computes MD5(HA1:nonce:nc:cnonce:qop:HA2), the response a
// well-behaved client should have sent.
func DigestExpected(ha1, nonce, nc, cnonce, qop, ha2 string) string {
	return md5Hex(strings.Join([]string{ha1, nonce, nc, cnonce, qop, ha2}, ":"))
}

// VerifyDigest implements spec.md §4.5 "Digest verification" end to end:
// accept iff the client's response equals the server-computed expected
// value.
func VerifyDigest(username, realm, password, method, uri, nonce, nc, cnonce, qop, response string) bool {
	ha1 := DigestHA1(username, realm, password)
	ha2 := DigestHA2(method, uri)
	expected := DigestExpected(ha1, nonce, nc, cnonce, qop, ha2)
	return expected == response
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// CheckBearerScope implements spec.md §4.5 "Bearer scope check": if the
// method declares scopes and the token's scope is empty, or declared but
// not among the declared set, fail with 403 insufficient_scope.
func CheckBearerScope(declared []string, tokenScope string) *Failure {
	if len(declared) == 0 {
		return nil
	}

	if tokenScope == "" {
		return &Failure{Code: 403, Challenge: `error="insufficient_scope"`, Message: "token carries no scope"}
	}

	for _, s := range declared {
		if s == tokenScope {
			return nil
		}
	}

	return &Failure{Code: 403, Challenge: `error="insufficient_scope"`, Message: "token scope not in declared set"}
}

// BearerIdentity is the resolved identity a Bearer token lookup returns:
// the subject plus the scope string CheckBearerScope evaluates against
// the method's declared Scopes.
type BearerIdentity struct {
	User  interface{}
	Scope string
}

// NewBearerMethod builds a Method wiring ExtractBearer, a caller-supplied
// token lookup and CheckBearerScope as its PostValidator, per spec.md
// §4.5's Bearer row plus scope check.
func NewBearerMethod(name, realm string, scopes []string, lookup func(token string) (BearerIdentity, *Failure)) *Method {
	return &Method{
		Name:    name,
		Scheme:  SchemeBearer,
		Realm:   realm,
		Scopes:  scopes,
		Extract: ExtractBearer(),
		Validate: func(creds interface{}) Outcome {
			token, ok := creds.(BearerToken)
			if !ok {
				return Outcome{Failure: &Failure{Code: 400, Message: "not a bearer token"}}
			}
			identity, failure := lookup(string(token))
			if failure != nil {
				return Outcome{Failure: failure}
			}
			return Outcome{User: identity}
		},
		Post: func(creds interface{}, outcome Outcome) *Failure {
			identity, ok := outcome.User.(BearerIdentity)
			if !ok {
				return nil
			}
			return CheckBearerScope(scopes, identity.Scope)
		},
	}
}

// NewDigestMethod builds a Method wiring ExtractDigest and VerifyDigest:
// passwordLookup resolves the plaintext password for a username (needed
// to recompute HA1 server-side), per spec.md §4.5's Digest verification
// formula.
func NewDigestMethod(name, realm string, passwordLookup func(username string) (string, bool)) *Method {
	return &Method{
		Name:    name,
		Scheme:  SchemeDigest,
		Realm:   realm,
		Extract: ExtractDigest(),
		Validate: func(creds interface{}) Outcome {
			fields, ok := creds.(Credentials)
			if !ok {
				return Outcome{Failure: &Failure{Code: 400, Message: "not digest credentials"}}
			}
			password, found := passwordLookup(fields["username"])
			if !found {
				return Outcome{Failure: &Failure{Code: 401, Message: "unknown user"}}
			}
			if !VerifyDigest(fields["username"], realm, password, fields["method"],
				fields["uri"], fields["nonce"], fields["nc"], fields["cnonce"], fields["qop"], fields["response"]) {
				return Outcome{Failure: &Failure{Code: 401, Message: "digest response mismatch"}}
			}
			return Outcome{User: fields["username"]}
		},
	}
}
