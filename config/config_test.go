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

package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pode-server/pode/config"
)

const validYAML = `
server:
  name: pode-demo
  restart:
    period: 60
    times:
      - "03:00"
    crons:
      - "0 */6 * * *"
  request:
    timeout: 30
    bodySize: 1048576
web:
  static:
    path: /var/www
    cache:
      enable: true
      maxAge: 3600
custom_extension:
  flavor: spicy
`

var _ = Describe("Load", func() {
	It("decodes a well-formed YAML document and captures unknown top-level keys", func() {
		cfg, err := config.Load("yaml", []byte(validYAML))
		Expect(err).To(BeNil())

		Expect(cfg.Server.Name).To(Equal("pode-demo"))
		Expect(cfg.Server.Restart.PeriodMinutes).To(Equal(60))
		Expect(cfg.Server.Restart.Times).To(Equal([]string{"03:00"}))
		Expect(cfg.Server.Restart.Crons).To(Equal([]string{"0 */6 * * *"}))
		Expect(cfg.Server.Request.TimeoutSeconds).To(Equal(30))
		Expect(cfg.Server.Request.MaxBodySize).To(Equal(int64(1048576)))
		Expect(cfg.Web.Static.Path).To(Equal("/var/www"))
		Expect(cfg.Web.Static.Cache.Enable).To(BeTrue())
		Expect(cfg.Web.Static.Cache.MaxAge).To(Equal(3600))

		Expect(cfg.Extra).To(HaveKey("custom_extension"))
	})

	It("decodes a well-formed JSON document equivalently", func() {
		raw := []byte(`{"server":{"name":"pode-demo","restart":{"period":5},"request":{}},"web":{}}`)
		cfg, err := config.Load("json", raw)
		Expect(err).To(BeNil())
		Expect(cfg.Server.Name).To(Equal("pode-demo"))
		Expect(cfg.Server.Restart.PeriodMinutes).To(Equal(5))
	})

	It("rejects a document missing the required server.name field", func() {
		raw := []byte(`{"server":{"restart":{}},"web":{}}`)
		_, err := config.Load("json", raw)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(config.ErrorValidate)).To(BeTrue())
	})

	It("rejects a malformed document body", func() {
		_, err := config.Load("json", []byte(`{not json`))
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(config.ErrorReadConfig)).To(BeTrue())
	})

	It("rejects a restart.times entry not matching HH:MM", func() {
		raw := []byte(`{"server":{"name":"x","restart":{"times":["not-a-time"]}},"web":{}}`)
		_, err := config.Load("json", raw)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(config.ErrorValidate)).To(BeTrue())
	})
})
