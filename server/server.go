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

// Package server implements the Server Context of spec.md §3/§5: it owns
// the endpoint registry, route table, auth registry, session store,
// middleware pipeline, scheduler registry + worker pool, file watcher, and
// shared state, and exposes Start/Stop/Restart plus the graceful-shutdown
// sequence of spec.md §4.7.
// Grounded on nabbar-golib/httpserver/pool.go's PoolServer orchestration
// (add/validate/listen-all/shutdown-all over a collection of servers) and
// nabbar-golib/config/manage.go's component-registry lifecycle pattern,
// generalized from "a pool of HTTP servers" to "a pool of heterogeneous
// protocol listeners sharing one scheduler and one shared state".
package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	ginsdk "github.com/gin-gonic/gin"

	"github.com/pode-server/pode/auth"
	"github.com/pode-server/pode/certificates"
	"github.com/pode-server/pode/config"
	"github.com/pode-server/pode/endpoint"
	liberr "github.com/pode-server/pode/errors"
	"github.com/pode-server/pode/listener"
	"github.com/pode-server/pode/logger"
	"github.com/pode-server/pode/middleware"
	podesmtp "github.com/pode-server/pode/protocol/smtp"
	"github.com/pode-server/pode/reqctx"
	"github.com/pode-server/pode/route"
	"github.com/pode-server/pode/scheduler"
	"github.com/pode-server/pode/session"
	"github.com/pode-server/pode/state"
	"github.com/pode-server/pode/userstore"
	"github.com/pode-server/pode/watcher"
)

const (
	ErrorAlreadyRunning liberr.CodeError = iota + liberr.MinPkgServer
	ErrorNotRunning
	ErrorStartFailed
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgServer, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorAlreadyRunning:
		return "server is already running"
	case ErrorNotRunning:
		return "server is not running"
	case ErrorStartFailed:
		return "one or more endpoints failed to start"
	default:
		return ""
	}
}

// DefaultWorkers is used when config.ServerConfig.Workers is unset.
const DefaultWorkers = 4

// DefaultShutdownGrace bounds how long Stop waits for in-flight contexts.
const DefaultShutdownGrace = 10 * time.Second

// AuthUserKey is the gin context key the auth-as-middleware stage stores
// the resolved identity under, per spec.md §4.5.
const AuthUserKey = "pode.auth.user"

// ctxKeyEndpointName carries the serving endpoint's name from the
// net/http.Server wrapper down to the shared gin engine's NoRoute handler,
// so route.Table.Match can apply spec.md §4.3's endpoint-name filter even
// though every HTTP-family endpoint shares one *route.Table/*gin.Engine.
type ctxKeyEndpointName struct{}

// Context is the Server Context: the single composition root tying every
// other package together for one running Pode instance.
type Context struct {
	Config     *config.Config
	Routes     *route.Table
	Middleware *middleware.Pipeline
	Auth       *auth.Registry
	Users      *userstore.Store
	State      *state.State

	Sessions  *session.Store
	Scheduler *scheduler.Registry
	Pool      *scheduler.Pool
	Watcher   *watcher.Watcher
	CertPool  *certificates.Pool
	Log       *logger.Logger

	mu          sync.Mutex
	running     bool
	endpointReg *endpoint.Registry
	httpSrv     map[string]*http.Server
	httpLn      map[string]net.Listener
	rawListener map[string]*listener.Listener
	onStop      []func(context.Context)
}

// New wires a fresh Server Context from a decoded Config. Sessions,
// Watcher, and CertPool may be nil/left unset by the caller and populated
// afterward before Start. The shared route table's NoRoute handler is
// wired here to c.dispatch, so every HTTP-family endpoint that shares this
// Context's Routes runs the Router -> Middleware -> Auth -> Handler ->
// Endware pipeline of spec.md §4.4 at request time.
func New(cfg *config.Config) *Context {
	st := state.New()

	c := &Context{
		Config:      cfg,
		Routes:      route.NewTable(nil),
		Middleware:  middleware.NewPipeline(),
		Auth:        auth.NewRegistry(),
		State:       st,
		endpointReg: endpoint.NewRegistry(),
		Scheduler:   scheduler.NewRegistry(st.Lockable()),
		Pool:        scheduler.NewPool(workers(cfg), 0),
		Log:         logger.New("server", nil, logger.InfoLevel, false),
		httpSrv:     make(map[string]*http.Server),
		httpLn:      make(map[string]net.Listener),
		rawListener: make(map[string]*listener.Listener),
	}

	c.Routes.Engine().NoRoute(c.dispatch)

	return c
}

func workers(cfg *config.Config) int {
	if cfg != nil && cfg.Server.Workers > 0 {
		return cfg.Server.Workers
	}
	return DefaultWorkers
}

// AddEndpoint registers an endpoint to be bound on Start, delegating to
// endpoint.Registry so protocol-family exclusivity (spec.md §3 invariant
// (a)) and the low-port privilege check (invariant (c)) are enforced on
// the server's real registration surface, not just on endpoint.Registry's
// own tests.
func (c *Context) AddEndpoint(ep endpoint.Endpoint) liberr.Error {
	return c.endpointReg.Add(ep)
}

// OnStop registers a handler invoked during graceful shutdown, after
// endware flush, per spec.md §4.7.
func (c *Context) OnStop(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStop = append(c.onStop, fn)
}

// Start binds every registered endpoint, starts the worker pool, wires the
// configured auto-restart triggers, and starts the scheduler registry.
// Restart wiring happens before Scheduler.Start so the period timer
// WireRestart installs is present in Registry.timers when Start iterates
// and starts them (Registry.AddTimer does not itself start a timer already
// added to a running registry).
func (c *Context) Start(ctx context.Context) liberr.Error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrorAlreadyRunning.Error(nil)
	}
	c.running = true
	c.mu.Unlock()

	endpoints := c.endpointReg.List()

	if err := c.Pool.Start(ctx); err != nil {
		return ErrorStartFailed.ErrorParent(err)
	}

	if c.Config != nil {
		restartCfg := scheduler.RestartConfig{
			PeriodMinutes: c.Config.Server.Restart.PeriodMinutes,
			Times:         c.Config.Server.Restart.Times,
			Crons:         c.Config.Server.Restart.Crons,
		}
		if err := scheduler.WireRestart(c.Scheduler, restartCfg, c.Restart); err != nil {
			return ErrorStartFailed.ErrorParent(err)
		}
	}

	c.Scheduler.Start(ctx)

	agg := ErrorStartFailed.Error(nil)
	failed := false

	for _, ep := range endpoints {
		if err := c.startEndpoint(ctx, ep); err != nil {
			agg.Add(err)
			failed = true
		}
	}

	if failed {
		return agg
	}
	return nil
}

func (c *Context) startEndpoint(ctx context.Context, ep endpoint.Endpoint) liberr.Error {
	if ep.Protocol == endpoint.HTTP || ep.Protocol == endpoint.HTTPS ||
		ep.Protocol == endpoint.WS || ep.Protocol == endpoint.WSS {
		return c.startHTTP(ep)
	}
	return c.startRaw(ctx, ep)
}

// startHTTP binds ep's listener onto the shared Routes/gin engine. Every
// HTTP-family endpoint shares one *route.Table, so a thin http.HandlerFunc
// stamps the serving endpoint's name onto the request context before
// delegating to Routes.ServeHTTP, giving c.dispatch (wired as the engine's
// NoRoute handler in New) the endpoint-name filter spec.md §4.3 needs.
func (c *Context) startHTTP(ep endpoint.Endpoint) liberr.Error {
	addr := ep.Address
	if ep.Port > 0 {
		addr = net.JoinHostPort(ep.Address, itoa(ep.Port))
	}

	epName := ep.Name
	routes := c.Routes

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyEndpointName{}, epName))
			routes.ServeHTTP(w, r)
		}),
	}

	if ep.Protocol.IsTLS() {
		tlsCfg, err := ep.TLS.Build(c.CertPool)
		if err != nil {
			return ErrorStartFailed.ErrorParent(err)
		}
		srv.TLSConfig = tlsCfg
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return ErrorStartFailed.ErrorParent(err)
	}

	if ep.Protocol.IsTLS() {
		go srv.ServeTLS(ln, "", "")
	} else {
		go srv.Serve(ln)
	}

	c.mu.Lock()
	c.httpSrv[ep.Name] = srv
	c.httpLn[ep.Name] = ln
	c.mu.Unlock()
	return nil
}

// dispatch is the shared gin engine's NoRoute handler: it performs the
// Router stage of spec.md §4.3/§4.4 via Routes.Match (match-order +
// ambiguity detection + endpoint-name filter), then builds and runs the
// Middleware -> Auth -> route-middleware -> Handler -> Endware chain for
// the matched route via Middleware.Build.
func (c *Context) dispatch(gc *ginsdk.Context) {
	epName, _ := gc.Request.Context().Value(ctxKeyEndpointName{}).(string)

	matched, params, mErr := c.Routes.Match(gc.Request.Method, gc.Request.URL.Path, epName)
	if mErr != nil {
		c.logError("route", "ambiguous route match", mErr)
		gc.String(http.StatusInternalServerError, "ambiguous route")
		return
	}
	if matched == nil {
		gc.String(http.StatusNotFound, "not found")
		return
	}

	for k, v := range params {
		gc.Params = append(gc.Params, ginsdk.Param{Key: k, Value: v})
	}

	authStage := c.buildAuthStage(matched)
	handlerStage := wrapHandler(matched.Handler)
	mwStages := wrapHandlers(matched.Middleware)

	c.Middleware.Build(authStage, mwStages, handlerStage)(gc)
}

// wrapHandler adapts a route.Handler (a plain gin.HandlerFunc signature)
// into a middleware.Stage: it continues unless the handler aborted the
// gin context.
func wrapHandler(h route.Handler) middleware.Stage {
	if h == nil {
		return func(*ginsdk.Context) bool { return true }
	}
	return func(gc *ginsdk.Context) bool {
		h(gc)
		return !gc.IsAborted()
	}
}

func wrapHandlers(hs []route.Handler) []middleware.Stage {
	out := make([]middleware.Stage, len(hs))
	for i, h := range hs {
		out[i] = wrapHandler(h)
	}
	return out
}

// buildAuthStage implements spec.md §4.5's authentication-as-middleware
// stage for a route carrying an AuthName: session attachment/skip, the
// scheme -> validator -> post-validator chain, challenge composition on
// failure, and login/logout handling.
func (c *Context) buildAuthStage(r *route.Route) middleware.Stage {
	if r.AuthName == "" {
		return nil
	}

	return func(gc *ginsdk.Context) bool {
		method, mErr := c.Auth.Get(r.AuthName)
		if mErr != nil {
			c.logError("auth", "unknown auth method", mErr)
			gc.AbortWithStatus(http.StatusInternalServerError)
			return false
		}

		// A login-flagged GET route renders its form without authenticating.
		if r.Login && gc.Request.Method == http.MethodGet {
			return true
		}

		var sess *session.Session
		if !method.Sessionless && c.Sessions != nil {
			if signedID := c.readSessionID(gc); signedID != "" {
				bind := session.BindHash(gc.ClientIP(), gc.Request.UserAgent())
				if resolved, rErr := c.Sessions.Resolve(signedID, bind); rErr == nil {
					sess = resolved
				}
			}
		}

		if sess != nil && sess.Auth != nil && sess.Auth.IsAuthenticated {
			// Per spec.md §4.5 "Session attachment": a valid session
			// carrying an authenticated slot skips the scheme/validator.
			gc.Set(AuthUserKey, sess.Auth.User)
		} else {
			outcome := auth.Authenticate(method, ginAuthRequest(gc))
			if outcome.Failure != nil {
				c.writeAuthFailure(gc, method, outcome.Failure)
				return false
			}

			gc.Set(AuthUserKey, outcome.User)

			if !method.Sessionless && c.Sessions != nil {
				if sess == nil {
					var signedID string
					sess, signedID = c.Sessions.NewSession(session.BindHash(gc.ClientIP(), gc.Request.UserAgent()))
					c.writeSessionID(gc, signedID)
				}
				c.Sessions.Save(sess, func(s *session.Session) {
					s.Auth = &session.AuthSlot{User: outcome.User, IsAuthenticated: true, Store: true}
				})
			}
		}

		if r.Logout {
			if sess != nil {
				c.Sessions.Revoke(sess.ID)
			}
			c.clearSessionID(gc)
		}

		return true
	}
}

// ginAuthRequest adapts a *gin.Context into the framework-independent
// auth.Request shape.
func ginAuthRequest(gc *ginsdk.Context) auth.Request {
	var peerCert interface{}
	if gc.Request.TLS != nil && len(gc.Request.TLS.PeerCertificates) > 0 {
		peerCert = gc.Request.TLS.PeerCertificates[0]
	}
	return auth.Request{
		Method:      gc.Request.Method,
		Header:      gc.Request.Header,
		FormValue:   gc.Request.FormValue,
		TLSPeerCert: peerCert,
		URI:         gc.Request.RequestURI,
	}
}

// writeAuthFailure implements spec.md §4.5's challenge composition and
// redirect-on-FailureURL behavior for a rejected auth attempt.
func (c *Context) writeAuthFailure(gc *ginsdk.Context, m *auth.Method, f *auth.Failure) {
	if m.FailureURL != "" {
		gc.Redirect(http.StatusFound, m.FailureURL)
		gc.Abort()
		return
	}

	if gc.Writer.Header().Get("WWW-Authenticate") == "" {
		gc.Header("WWW-Authenticate", auth.ComposeChallenge(m, f.Challenge))
	}
	for k, v := range f.Headers {
		gc.Header(k, v)
	}

	code := f.Code
	if code == 0 {
		code = http.StatusUnauthorized
	}
	msg := f.Message
	if msg == "" {
		msg = "unauthorized"
	}

	c.logError("auth", "authentication failed", fmt.Errorf("%s: %s", m.Name, msg))
	gc.AbortWithStatus(code)
}

func (c *Context) readSessionID(gc *ginsdk.Context) string {
	if c.Sessions.UsesHeaders() {
		return gc.GetHeader(c.Sessions.CookieName())
	}
	v, _ := gc.Cookie(c.Sessions.CookieName())
	return v
}

func (c *Context) writeSessionID(gc *ginsdk.Context, signedID string) {
	if c.Sessions.UsesHeaders() {
		gc.Header(c.Sessions.CookieName(), signedID)
		return
	}
	gc.SetCookie(c.Sessions.CookieName(), signedID, 0, "/", "", false, true)
}

func (c *Context) clearSessionID(gc *ginsdk.Context) {
	if c.Sessions.UsesHeaders() {
		gc.Header(c.Sessions.CookieName(), "")
		return
	}
	gc.SetCookie(c.Sessions.CookieName(), "", -1, "/", "", false, true)
}

// Addr returns the actual bound address of a started endpoint, useful when
// a port of 0 was requested and the OS assigned one. Returns nil if the
// named endpoint has not been started.
func (c *Context) Addr(name string) net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ln, ok := c.httpLn[name]; ok {
		return ln.Addr()
	}
	if l, ok := c.rawListener[name]; ok {
		return l.Addr()
	}
	return nil
}

func (c *Context) startRaw(ctx context.Context, ep endpoint.Endpoint) liberr.Error {
	handler := c.rawHandler(ep)
	submit := func(job func(context.Context)) { c.Pool.Submit(scheduler.Job(job)) }
	l := listener.New(ep, handler, submit)
	if err := l.Start(ctx, c.CertPool); err != nil {
		return err
	}

	c.mu.Lock()
	c.rawListener[ep.Name] = l
	c.mu.Unlock()
	return nil
}

// rawHandler dispatches an accepted raw connection per its endpoint's
// protocol: SMTP drives the command-dialog state machine; a plain TCP
// connection is typed TCP, moved to Processing and then closed. No handler
// runs for TCP connections and nothing is stored in the data bag.
func (c *Context) rawHandler(ep endpoint.Endpoint) listener.Handler {
	return func(ctx context.Context, rc *reqctx.Context) {
		defer rc.Close()

		_ = rc.Transition(reqctx.StateReceiving)

		if ep.Protocol == endpoint.SMTP {
			rc.Type = reqctx.TypeSMTP
			c.serveSMTP(rc)
			return
		}

		rc.Type = reqctx.TypeTCP
		_ = rc.Transition(reqctx.StateReceived)
		_ = rc.Transition(reqctx.StateProcessing)
	}
}

func (c *Context) serveSMTP(rc *reqctx.Context) {
	conn := rc.Conn
	if conn == nil {
		return
	}

	sess := podesmtp.NewSession()
	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	writeLine(writer, podesmtp.Greeting)

	for {
		line, err := reader.ReadString('\n')
		line = trimCRLF(line)
		if line != "" || err == nil {
			reply, herr := sess.Handle(line)
			if herr != nil {
				c.logError("smtp", "command rejected", herr)
				writeLine(writer, "500 "+herr.Error())
			} else if reply.Code != 0 {
				// Code 0 marks an intermediate DATA line: per RFC 5321 the
				// server stays silent until the terminating "." reply.
				writeLine(writer, itoa(reply.Code)+" "+reply.Text)
				if reply.Message != nil {
					c.State.Set("smtp.last_message."+rc.ID, reply.Message, "smtp")
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				c.logError("smtp", "connection read failed", err)
			}
			return
		}
		if sess.State() == podesmtp.StateClosed {
			return
		}
	}
}

func writeLine(w *bufio.Writer, s string) {
	w.WriteString(s)
	w.WriteString("\r\n")
	_ = w.Flush()
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// logError writes an error-boundary log entry via the configured log sink,
// per spec.md §4.4 "any thrown error is logged". A nil Log or nil err is a
// silent no-op (Log is optional; callers pass nil when there is nothing to
// report).
func (c *Context) logError(area, msg string, err error) {
	if c.Log == nil || err == nil {
		return
	}
	c.Log.Error(msg).WithField("area", area).WithError(err).Log()
}

// Stop implements spec.md §4.7's graceful-shutdown sequence: stop
// accepting, close listeners, wait up to grace for in-flight contexts,
// cancel remaining, invoke "on stop" handlers.
func (c *Context) Stop(grace time.Duration) liberr.Error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrorNotRunning.Error(nil)
	}
	c.running = false
	httpSrv := make(map[string]*http.Server, len(c.httpSrv))
	for k, v := range c.httpSrv {
		httpSrv[k] = v
	}
	rawListener := make(map[string]*listener.Listener, len(c.rawListener))
	for k, v := range c.rawListener {
		rawListener[k] = v
	}
	onStop := append([]func(context.Context){}, c.onStop...)
	c.mu.Unlock()

	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	for name, srv := range httpSrv {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logError("shutdown", "http server shutdown failed for "+name, err)
		}
	}
	for name, l := range rawListener {
		if err := l.Stop(); err != nil {
			c.logError("shutdown", "listener stop failed for "+name, err)
		}
	}

	c.Scheduler.Stop()
	if err := c.Pool.Stop(grace); err != nil {
		c.logError("shutdown", "worker pool stop failed", err)
	}

	if c.Watcher != nil {
		if err := c.Watcher.Close(); err != nil {
			c.logError("shutdown", "watcher close failed", err)
		}
	}

	for _, fn := range onStop {
		fn(shutdownCtx)
	}

	return nil
}

// Restart performs a graceful Stop followed by Start; Start passes it to
// scheduler.WireRestart as the auto-restart callback (spec.md §4.7).
func (c *Context) Restart(ctx context.Context) error {
	if err := c.Stop(DefaultShutdownGrace); err != nil && !err.IsCode(ErrorNotRunning) {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	return nil
}

// IsRunning reports whether the Server Context has an active Start/Stop
// pair in progress.
func (c *Context) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
