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
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// LDAPConfig configures the optional LDAP-backed validator, grounded on
// nabbar-golib/ldap's HelperLDAP: a bind DN/password to search with, a
// base DN and filter template to locate the user entry, then a second bind
// as that entry to verify the supplied password.
type LDAPConfig struct {
	Address    string // host:port
	UseTLS     bool
	TLSConfig  *tls.Config
	BindDN     string
	BindPass   string
	BaseDN     string
	FilterFmt  string // e.g. "(&(objectClass=user)(sAMAccountName=%s))"
	GroupAttr  string // attribute holding group membership, default "memberOf"
}

func (c LDAPConfig) filter(username string) string {
	f := c.FilterFmt
	if f == "" {
		f = "(&(objectClass=person)(uid=%s))"
	}
	return fmt.Sprintf(f, ldap.EscapeFilter(username))
}

func (c LDAPConfig) dial() (*ldap.Conn, error) {
	if c.UseTLS {
		return ldap.DialTLS("tcp", c.Address, ldap.DialWithTLSConfig(c.TLSConfig))
	}
	return ldap.DialURL("ldap://" + c.Address)
}

// NewLDAPValidator builds a Validator for the Basic/Form schemes that binds
// as the configured service account, searches for the user by
// FilterFmt, then re-binds as the resolved DN with the supplied password —
// the directory never discloses the stored credential, matching spec.md
// §1's "delegates external directory access" framing.
func NewLDAPValidator(cfg LDAPConfig) Validator {
	groupAttr := cfg.GroupAttr
	if groupAttr == "" {
		groupAttr = "memberOf"
	}

	return func(credentials interface{}) Outcome {
		creds, ok := credentials.(Credentials)
		if !ok {
			return Outcome{Failure: &Failure{Code: 400, Message: "ldap validator requires username/password credentials"}}
		}

		username, password := creds["username"], creds["password"]
		if username == "" || password == "" {
			return Outcome{Failure: &Failure{Code: 401, Message: "missing username or password"}}
		}

		conn, err := cfg.dial()
		if err != nil {
			return Outcome{Failure: &Failure{Code: 401, Message: "ldap directory unreachable"}}
		}
		defer conn.Close()

		if err := conn.Bind(cfg.BindDN, cfg.BindPass); err != nil {
			return Outcome{Failure: &Failure{Code: 401, Message: "ldap service bind failed"}}
		}

		req := ldap.NewSearchRequest(
			cfg.BaseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			cfg.filter(username),
			[]string{"dn", "cn", "mail", groupAttr},
			nil,
		)

		res, err := conn.Search(req)
		if err != nil || len(res.Entries) != 1 {
			return Outcome{Failure: &Failure{Code: 401, Message: "user not found in directory"}}
		}

		entry := res.Entries[0]
		if err := conn.Bind(entry.DN, password); err != nil {
			return Outcome{Failure: &Failure{Code: 401, Message: "invalid credentials"}}
		}

		return Outcome{User: map[string]interface{}{
			"username": username,
			"dn":       entry.DN,
			"name":     entry.GetAttributeValue("cn"),
			"email":    entry.GetAttributeValue("mail"),
			"groups":   entry.GetAttributeValues(groupAttr),
		}}
	}
}
