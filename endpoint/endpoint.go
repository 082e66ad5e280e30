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

// Package endpoint implements the Endpoint data model of spec.md §3/§4.1:
// the (protocol, address, port) triple a listener binds to, its protocol
// family exclusivity invariant, and address-string parsing.
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pode-server/pode/certificates"
)

// Protocol is one of the six connection families Pode accepts.
type Protocol string

const (
	HTTP  Protocol = "HTTP"
	HTTPS Protocol = "HTTPS"
	SMTP  Protocol = "SMTP"
	TCP   Protocol = "TCP"
	WS    Protocol = "WS"
	WSS   Protocol = "WSS"
)

// family groups protocols that are allowed to coexist on the same server.
func (p Protocol) family() string {
	switch p {
	case HTTP, HTTPS, WS, WSS:
		return "web"
	case SMTP:
		return "smtp"
	case TCP:
		return "tcp"
	default:
		return "unknown"
	}
}

func (p Protocol) IsTLS() bool {
	return p == HTTPS || p == WSS
}

// Endpoint is a bound (protocol, address, port) with an optional unique
// name and an optional hostname filter, plus its TLS material.
type Endpoint struct {
	Protocol Protocol
	Address  string
	Port     int
	Name     string
	HostName string

	TLS                    certificates.Material
	AllowClientCertificate bool
}

// ParseAddress implements spec.md §4.1's address-parsing rules: host:port
// split on the last colon, host: → port 0, :port → wildcard host, bare
// integer → port with wildcard host, otherwise a bare host; all/*/empty
// normalizes to 0.0.0.0.
func ParseAddress(addr string) (host string, port int, err error) {
	addr = strings.TrimSpace(addr)

	if addr == "" || addr == "all" || addr == "*" {
		return "0.0.0.0", 0, nil
	}

	// bare integer: port only, wildcard host.
	if p, e := strconv.Atoi(addr); e == nil {
		return "0.0.0.0", p, nil
	}

	// bracketed IPv6 with port, e.g. [::1]:8080
	if strings.HasPrefix(addr, "[") {
		h, p, e := net.SplitHostPort(addr)
		if e != nil {
			return "", 0, fmt.Errorf("invalid IP address: %s", addr)
		}
		return normalizeHost(h), atoiOrZero(p), nil
	}

	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		// bare host, no port.
		if e := validateHost(addr); e != nil {
			return "", 0, e
		}
		return normalizeHost(addr), 0, nil
	}

	h := addr[:idx]
	p := addr[idx+1:]

	if h == "" {
		// :port -> wildcard host
		pn, e := strconv.Atoi(p)
		if e != nil {
			return "", 0, fmt.Errorf("invalid port: %s", p)
		}
		return "0.0.0.0", pn, nil
	}

	if e := validateHost(h); e != nil {
		return "", 0, e
	}

	if p == "" {
		// host: -> port 0 (assign)
		return normalizeHost(h), 0, nil
	}

	pn, e := strconv.Atoi(p)
	if e != nil {
		return "", 0, fmt.Errorf("invalid port: %s", p)
	}

	return normalizeHost(h), pn, nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func normalizeHost(h string) string {
	if h == "" || h == "all" || h == "*" {
		return "0.0.0.0"
	}
	return h
}

func validateHost(h string) error {
	if h == "" || h == "all" || h == "*" {
		return nil
	}
	if ip := net.ParseIP(h); ip != nil {
		return nil
	}
	// reject strings that look like a malformed IPv4 literal (all-numeric
	// dotted quad) rather than a hostname.
	if looksLikeDottedQuad(h) {
		return fmt.Errorf("invalid IP address: %s", h)
	}
	return nil
}

func looksLikeDottedQuad(h string) bool {
	parts := strings.Split(h, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if _, e := strconv.Atoi(p); e != nil {
			return false
		}
	}
	return true
}

// New builds an Endpoint from a protocol and a raw address string,
// applying ParseAddress and defaulting Name to "<address>:<port>".
func New(proto Protocol, addr string, port int, name, hostname string) (Endpoint, error) {
	host := addr
	p := port

	if host == "" || p == 0 {
		h, prt, err := ParseAddress(addr)
		if err != nil {
			return Endpoint{}, err
		}
		host = h
		if p == 0 {
			p = prt
		}
	}

	ep := Endpoint{
		Protocol: proto,
		Address:  host,
		Port:     p,
		Name:     name,
		HostName: hostname,
	}

	if ep.Name == "" {
		ep.Name = fmt.Sprintf("%s:%d", host, p)
	}

	return ep, nil
}

// RequiresPrivilege reports whether binding this endpoint needs elevated
// privileges (ports below 1024 on Unix-like systems).
func (e Endpoint) RequiresPrivilege() bool {
	return e.Port > 0 && e.Port < 1024
}

func (e Endpoint) Key() string {
	return fmt.Sprintf("%s|%s|%d", e.Protocol, e.Address, e.Port)
}
