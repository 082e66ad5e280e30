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

package certificates

import (
	"crypto/tls"
	"strings"
)

// ClientAuth is the client-certificate request/require/verify policy for
// a TLS endpoint, wrapping tls.ClientAuthType with string parsing.
type ClientAuth tls.ClientAuthType

const (
	NoClientCert               = ClientAuth(tls.NoClientCert)
	RequestClientCert          = ClientAuth(tls.RequestClientCert)
	RequireAnyClientCert       = ClientAuth(tls.RequireAnyClientCert)
	VerifyClientCertIfGiven    = ClientAuth(tls.VerifyClientCertIfGiven)
	RequireAndVerifyClientCert = ClientAuth(tls.RequireAndVerifyClientCert)
)

// ParseClientAuth parses the none/request/require/verify/strict keywords
// spec.md §3 uses for the endpoint's "allow client certificates" flag.
func ParseClientAuth(s string) ClientAuth {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.Contains(s, "strict") || (strings.Contains(s, "require") && strings.Contains(s, "verify")):
		return RequireAndVerifyClientCert
	case strings.Contains(s, "verify"):
		return VerifyClientCertIfGiven
	case strings.Contains(s, "require"):
		return RequireAnyClientCert
	case strings.Contains(s, "request"):
		return RequestClientCert
	default:
		return NoClientCert
	}
}

func (c ClientAuth) TLS() tls.ClientAuthType {
	return tls.ClientAuthType(c)
}
