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

// Package config loads and validates the top-level Pode configuration
// document via github.com/spf13/viper, struct-tagged for
// mapstructure/json/yaml/toml and checked with
// github.com/go-playground/validator/v10, echoing the
// ServerConfig/Validate() shape of nabbar-golib/httpserver/config.go.
package config

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	liberr "github.com/pode-server/pode/errors"
)

const (
	ErrorReadConfig liberr.CodeError = iota + liberr.MinPkgConfig
	ErrorUnmarshal
	ErrorValidate
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgConfig, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorReadConfig:
		return "unable to read configuration document"
	case ErrorUnmarshal:
		return "unable to decode configuration document"
	case ErrorValidate:
		return "configuration failed validation"
	default:
		return ""
	}
}

// RestartConfig is spec.md §4.7/§8's server.restart key table: period
// (minutes), times (HH:MM array), crons (cron-expression array). Any
// combination may be set at once.
type RestartConfig struct {
	PeriodMinutes int      `mapstructure:"period" json:"period" yaml:"period" toml:"period" validate:"omitempty,min=1"`
	Times         []string `mapstructure:"times" json:"times" yaml:"times" toml:"times" validate:"omitempty,dive,datetime=15:04"`
	Crons         []string `mapstructure:"crons" json:"crons" yaml:"crons" toml:"crons"`
}

// RequestConfig is server.request: per-request timeout and maximum body
// size. Both are decoded and validated here; no other package reads them,
// so neither limit is applied to requests.
type RequestConfig struct {
	TimeoutSeconds int   `mapstructure:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" validate:"omitempty,min=0"`
	MaxBodySize    int64 `mapstructure:"bodySize" json:"bodySize" yaml:"bodySize" toml:"bodySize" validate:"omitempty,min=0"`
}

// ServerConfig groups the server.* keys, validated with the same
// validator.v10 struct-tag idiom the teacher uses.
type ServerConfig struct {
	Name    string        `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`
	Workers int           `mapstructure:"workers" json:"workers" yaml:"workers" toml:"workers" validate:"omitempty,min=1"`
	Restart RestartConfig `mapstructure:"restart" json:"restart" yaml:"restart" toml:"restart"`
	Request RequestConfig `mapstructure:"request" json:"request" yaml:"request" toml:"request"`
}

// StaticCacheConfig is web.static.cache.
type StaticCacheConfig struct {
	Enable bool `mapstructure:"enable" json:"enable" yaml:"enable" toml:"enable"`
	MaxAge int  `mapstructure:"maxAge" json:"maxAge" yaml:"maxAge" toml:"maxAge" validate:"omitempty,min=0"`
}

// StaticConfig is web.static.
type StaticConfig struct {
	Path  string            `mapstructure:"path" json:"path" yaml:"path" toml:"path"`
	Cache StaticCacheConfig `mapstructure:"cache" json:"cache" yaml:"cache" toml:"cache"`
}

// WebConfig groups the web.* keys.
type WebConfig struct {
	Static StaticConfig `mapstructure:"static" json:"static" yaml:"static" toml:"static"`
}

// Config is the full top-level document, plus a free-form passthrough map
// for any key this struct does not model explicitly, so a deployment's
// extension fields round-trip instead of being silently dropped.
type Config struct {
	Server ServerConfig `mapstructure:"server" json:"server" yaml:"server" toml:"server" validate:"required"`
	Web    WebConfig    `mapstructure:"web" json:"web" yaml:"web" toml:"web"`

	Extra map[string]interface{} `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
}

// Load reads a configuration document of the given viper-recognized format
// ("json", "yaml", "toml", ...), decodes it into a Config, captures any
// unrecognized top-level keys into Extra, and validates the result.
func Load(format string, raw []byte) (*Config, liberr.Error) {
	v := viper.New()
	v.SetConfigType(format)

	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, ErrorReadConfig.ErrorParent(err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrorUnmarshal.ErrorParent(err)
	}

	cfg.Extra = extraKeys(v.AllSettings())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func extraKeys(all map[string]interface{}) map[string]interface{} {
	known := map[string]bool{"server": true, "web": true}
	extra := make(map[string]interface{})
	for k, v := range all {
		if !known[k] {
			extra[k] = v
		}
	}
	return extra
}

// Validate runs struct-tag validation over the decoded document, per the
// ServerConfig.Validate() pattern of nabbar-golib/httpserver/config.go.
func (c *Config) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)
	if err == nil {
		return nil
	}

	if ive, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorValidate.ErrorParent(ive)
	}

	out := ErrorValidate.Error(nil)
	for _, fe := range err.(validator.ValidationErrors) {
		out.Add(fmt.Errorf("config field %q fails constraint %q", fe.Namespace(), fe.ActualTag()))
	}

	return out
}
