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

// Package certificates assembles a *tls.Config from declarative material:
// a loaded certificate+key pair, a thumbprint reference into an already
// loaded pool, or a generated self-signed pair — per spec.md §3's
// Endpoint TLS-material invariant.
package certificates

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorLoadPair liberr.CodeError = iota + liberr.MinPkgCerts
	ErrorNoMaterial
	ErrorThumbprintUnknown
	ErrorSelfSigned
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgCerts, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorLoadPair:
		return "cannot load certificate/key pair"
	case ErrorNoMaterial:
		return "endpoint requires TLS but no material is configured"
	case ErrorThumbprintUnknown:
		return "no certificate registered for given thumbprint"
	case ErrorSelfSigned:
		return "cannot generate self-signed certificate"
	default:
		return ""
	}
}

// Material describes how a TLS endpoint obtains its certificate. Exactly
// one of CertFile/KeyFile, Thumbprint, or SelfSigned should be set.
type Material struct {
	CertFile   string `mapstructure:"cert_file" json:"cert_file" yaml:"cert_file"`
	KeyFile    string `mapstructure:"key_file" json:"key_file" yaml:"key_file"`
	Thumbprint string `mapstructure:"thumbprint" json:"thumbprint" yaml:"thumbprint"`
	SelfSigned bool   `mapstructure:"self_signed" json:"self_signed" yaml:"self_signed"`

	// AllowClientCertificate requests (does not require) a client
	// certificate and surfaces it plus validation errors on the request.
	AllowClientCertificate bool       `mapstructure:"allow_client_certificate" json:"allow_client_certificate" yaml:"allow_client_certificate"`
	ClientAuth             ClientAuth `mapstructure:"client_auth" json:"client_auth" yaml:"client_auth"`
	ClientCA               [][]byte   `mapstructure:"-" json:"-" yaml:"-"`
}

// Pool resolves thumbprint references against already-loaded certificates.
type Pool struct {
	byThumbprint map[string]tls.Certificate
}

func NewPool() *Pool {
	return &Pool{byThumbprint: make(map[string]tls.Certificate)}
}

func (p *Pool) Register(thumbprint string, cert tls.Certificate) {
	p.byThumbprint[thumbprint] = cert
}

// Build resolves the Material into a *tls.Config ready to assign to
// http.Server.TLSConfig or a raw net.Listener wrapper.
func (m Material) Build(pool *Pool) (*tls.Config, liberr.Error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	var (
		cert tls.Certificate
		err  error
	)

	switch {
	case m.CertFile != "" && m.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(m.CertFile, m.KeyFile)
		if err != nil {
			return nil, ErrorLoadPair.ErrorParent(err)
		}
	case m.Thumbprint != "":
		if pool == nil {
			return nil, ErrorThumbprintUnknown.Error(nil)
		}
		var ok bool
		cert, ok = pool.byThumbprint[m.Thumbprint]
		if !ok {
			return nil, ErrorThumbprintUnknown.Error(nil)
		}
	case m.SelfSigned:
		cert, err = generateSelfSigned()
		if err != nil {
			return nil, ErrorSelfSigned.ErrorParent(err)
		}
	default:
		return nil, ErrorNoMaterial.Error(nil)
	}

	cfg.Certificates = []tls.Certificate{cert}

	if m.AllowClientCertificate {
		if m.ClientAuth == NoClientCert {
			cfg.ClientAuth = tls.RequestClientCert
		} else {
			cfg.ClientAuth = m.ClientAuth.TLS()
		}

		if len(m.ClientCA) > 0 {
			pool := x509.NewCertPool()
			for _, der := range m.ClientCA {
				pool.AppendCertsFromPEM(der)
			}
			cfg.ClientCAs = pool
		}
	}

	return cfg, nil
}

// IsConfigured reports whether any TLS material has been declared.
func (m Material) IsConfigured() bool {
	return (m.CertFile != "" && m.KeyFile != "") || m.Thumbprint != "" || m.SelfSigned
}

func generateSelfSigned() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "pode-self-signed"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	return tls.X509KeyPair(certPEM, keyPEM)
}

// Thumbprint computes a SHA-1-style fingerprint string for a loaded
// certificate, used to index the Pool.
func Thumbprint(cert *x509.Certificate) string {
	return fmt.Sprintf("%x", sha1.Sum(cert.Raw))
}
