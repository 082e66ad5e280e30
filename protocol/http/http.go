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

// Package http implements the spec.md §4.2 HTTP/1.1 parser concerns that sit
// above net/http: Content-Type driven body decode dispatch, Cookie header
// parsing, and WebSocket upgrade detection. The wire-level request line and
// header parsing itself is left to net/http.ReadRequest, per the teacher's
// own habit of building on stdlib net/http rather than a hand-rolled
// request-line scanner (nabbar-golib/httpserver/server.go wraps net/http
// throughout).
package http

import (
	"encoding/json"
	"encoding/xml"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// ContentKind classifies a request body per its Content-Type, per spec.md
// §4.2's "application/json, application/xml,
// application/x-www-form-urlencoded, multipart/form-data".
type ContentKind uint8

const (
	ContentUnknown ContentKind = iota
	ContentJSON
	ContentXML
	ContentForm
	ContentMultipart
)

// ClassifyContentType returns the ContentKind implied by a raw Content-Type
// header value, ignoring parameters such as charset/boundary.
func ClassifyContentType(raw string) ContentKind {
	base, _, err := mime.ParseMediaType(raw)
	if err != nil {
		base = strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
	}
	switch strings.ToLower(base) {
	case "application/json":
		return ContentJSON
	case "application/xml", "text/xml":
		return ContentXML
	case "application/x-www-form-urlencoded":
		return ContentForm
	case "multipart/form-data":
		return ContentMultipart
	default:
		return ContentUnknown
	}
}

// DecodeBody dispatches body bytes to the decoder implied by contentType,
// filling v for JSON/XML or returning parsed form values for
// x-www-form-urlencoded. Multipart bodies are left to the caller (they need
// the original *http.Request for MIME boundary + streaming semantics).
func DecodeBody(contentType string, body []byte, v interface{}) (url.Values, error) {
	switch ClassifyContentType(contentType) {
	case ContentJSON:
		return nil, json.Unmarshal(body, v)
	case ContentXML:
		return nil, xml.Unmarshal(body, v)
	case ContentForm:
		values, err := url.ParseQuery(string(body))
		return values, err
	default:
		return nil, nil
	}
}

// ParseCookies parses a raw Cookie header value the way net/http's request
// parser would, exposed standalone so hand-assembled Request Contexts can
// reuse it without a full *http.Request.
func ParseCookies(header string) []*http.Cookie {
	req := &http.Request{Header: http.Header{"Cookie": {header}}}
	return req.Cookies()
}

// UpgradeInfo describes a detected WebSocket upgrade request.
type UpgradeInfo struct {
	IsUpgrade bool
	Key       string
	Version   string
}

// DetectUpgrade implements spec.md §4.2's "Detect Upgrade: websocket +
// Connection: Upgrade + valid Sec-WebSocket-Key to mark an upgrade request."
func DetectUpgrade(header http.Header) UpgradeInfo {
	if !headerContainsToken(header.Get("Upgrade"), "websocket") {
		return UpgradeInfo{}
	}
	if !headerContainsToken(header.Get("Connection"), "upgrade") {
		return UpgradeInfo{}
	}
	key := strings.TrimSpace(header.Get("Sec-WebSocket-Key"))
	if key == "" {
		return UpgradeInfo{}
	}
	return UpgradeInfo{IsUpgrade: true, Key: key, Version: header.Get("Sec-WebSocket-Version")}
}

// KeepAlive implements spec.md §4.2's "Keep-alive is enabled when HTTP/1.1
// and Connection is not close."
func KeepAlive(proto, connectionHeader string) bool {
	if proto != "HTTP/1.1" {
		return false
	}
	return !headerContainsToken(connectionHeader, "close")
}

func headerContainsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
