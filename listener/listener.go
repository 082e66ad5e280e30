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

// Package listener implements spec.md §4.1: one accept loop per configured
// endpoint, TLS handshake dispatch on Open, and handoff of each accepted
// connection into a reqctx.Context submitted to the worker pool. Grounded
// on nabbar-golib/socket/server/tcp's context-driven accept loop (New(ctx,
// handler) spun into its own goroutine, shutdown observed via ctx.Done())
// and nabbar-golib/httpserver/server.go's Listen/PortInUse/TLS-branch
// shape, generalized from "one *server per protocol" to "one Listener per
// bound endpoint, any protocol".
package listener

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/pode-server/pode/certificates"
	"github.com/pode-server/pode/endpoint"
	liberr "github.com/pode-server/pode/errors"
	"github.com/pode-server/pode/reqctx"
)

const (
	ErrorBind liberr.CodeError = iota + liberr.MinPkgListener
	ErrorPortInUse
	ErrorTLSBuild
	ErrorAlreadyRunning
)

func init() {
	liberr.RegisterMessage(liberr.MinPkgListener, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrorBind:
		return "unable to bind listener"
	case ErrorPortInUse:
		return "address already in use"
	case ErrorTLSBuild:
		return "unable to build TLS configuration"
	case ErrorAlreadyRunning:
		return "listener is already running"
	default:
		return ""
	}
}

// Handler processes one accepted connection, already wrapped in a
// reqctx.Context. It runs on a worker-pool goroutine, not the accept loop.
type Handler func(ctx context.Context, rc *reqctx.Context)

// Listener binds one Endpoint and drives its accept loop.
type Listener struct {
	Endpoint endpoint.Endpoint

	handler Handler
	submit  func(func(context.Context))

	ln      net.Listener
	running int32
	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// New constructs a Listener for ep. submit is the worker pool's Submit
// function (scheduler.Pool.Submit), decoupled here to keep this package
// free of a direct scheduler import cycle.
func New(ep endpoint.Endpoint, handler Handler, submit func(func(context.Context))) *Listener {
	return &Listener{Endpoint: ep, handler: handler, submit: submit}
}

// Start binds the socket (performing the TLS handshake setup for TLS
// endpoints via certificates.Material.Build) and launches the accept loop.
func (l *Listener) Start(ctx context.Context, pool *certificates.Pool) liberr.Error {
	if !atomic.CompareAndSwapInt32(&l.running, 0, 1) {
		return ErrorAlreadyRunning.Error(nil)
	}

	addr := fmt.Sprintf("%s:%d", l.Endpoint.Address, l.Endpoint.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		atomic.StoreInt32(&l.running, 0)
		if isAddrInUse(err) {
			return ErrorPortInUse.ErrorParent(err)
		}
		return ErrorBind.ErrorParent(err)
	}

	if l.Endpoint.Protocol.IsTLS() {
		tlsCfg, cerr := l.Endpoint.TLS.Build(pool)
		if cerr != nil {
			_ = ln.Close()
			atomic.StoreInt32(&l.running, 0)
			return ErrorTLSBuild.ErrorParent(cerr)
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.ln = ln
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go l.acceptLoop(runCtx)

	return nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}

		rc := reqctx.New(conn, l.Endpoint.Name)
		l.dispatch(ctx, rc)
	}
}

// dispatch opens the connection (performing the TLS handshake if it is a
// *tls.Conn) and hands it to the worker pool, per spec.md §4.1's "On
// accept, construct a Request Context and hand it to the worker pool."
func (l *Listener) dispatch(ctx context.Context, rc *reqctx.Context) {
	if tc, ok := rc.Conn.(*tls.Conn); ok {
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = rc.Transition(reqctx.StateSslError)
			_ = rc.Close()
			return
		}
	}

	if err := rc.Transition(reqctx.StateOpen); err != nil {
		_ = rc.Close()
		return
	}

	handler := l.handler
	submit := func(runCtx context.Context) {
		handler(runCtx, rc)
	}

	if l.submit != nil {
		l.submit(submit)
	} else {
		go submit(ctx)
	}
}

// Stop closes the listening socket and waits for the accept loop goroutine
// to exit. It does not wait for in-flight connections — that is the
// server's graceful-shutdown responsibility (spec.md §4.7).
func (l *Listener) Stop() error {
	if !atomic.CompareAndSwapInt32(&l.running, 1, 0) {
		return nil
	}

	l.mu.Lock()
	cancel := l.cancel
	ln := l.ln
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if ln != nil {
		err = ln.Close()
	}

	l.wg.Wait()
	return err
}

func (l *Listener) IsRunning() bool {
	return atomic.LoadInt32(&l.running) == 1
}

func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if !errorsAs(err, &opErr) || opErr.Op != "listen" {
		return false
	}
	sysErr, ok := opErr.Err.(*os.SyscallError)
	return ok && sysErr.Err == syscall.EADDRINUSE
}

// errorsAs is a tiny local wrapper kept so this file does not need a
// second stdlib "errors" import alongside Pode's own errors package alias.
func errorsAs(err error, target **net.OpError) bool {
	opErr, ok := err.(*net.OpError)
	if !ok {
		return false
	}
	*target = opErr
	return true
}
