/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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
 *
 */

// Package logger implements the structured, level-filtered logger used by
// every component of the application server: the transport listener, the
// TLS terminator, the connection manager and the worker supervisor all
// report through a Logger built from this package. Messages flow through
// logrus and may be fanned out to stdout/stderr and any number of log
// files.
package logger

import (
	"context"
	"io"
	"log"
	"time"

	libctx "github.com/nabbar/appserver/context"
	logcfg "github.com/nabbar/appserver/logger/config"
	logent "github.com/nabbar/appserver/logger/entry"
	logfld "github.com/nabbar/appserver/logger/fields"
	loglvl "github.com/nabbar/appserver/logger/level"
)

// FuncLog returns a Logger instance. Components that need deferred access
// to a not-yet-built logger (e.g. during config parsing) accept this type
// instead of a Logger value.
type FuncLog func() Logger

// Logger is the entry point for structured logging. It also satisfies
// io.WriteCloser so it can be handed to anything that expects a plain
// writer (net/http.Server.ErrorLog wraps it through GetStdLogger).
type Logger interface {
	io.WriteCloser

	// SetLevel changes the minimal level a message must reach to be logged.
	SetLevel(lvl loglvl.Level)

	// GetLevel returns the current minimal level.
	GetLevel() loglvl.Level

	// SetOptions (re)configures the output destinations (stdout/stderr,
	// log files) from opt. InheritDefault/Extend flags in opt control
	// whether this call replaces or merges with the previous options.
	SetOptions(opt *logcfg.Options) error

	// GetOptions returns the options currently in effect.
	GetOptions() *logcfg.Options

	// SetFields replaces the default fields attached to every entry
	// produced by this logger.
	SetFields(field logfld.Fields)

	// GetFields returns a copy of the default fields.
	GetFields() logfld.Fields

	// Clone returns an independent logger sharing this one's level,
	// fields and options but with its own hooks and context.
	Clone() (Logger, error)

	// GetStdLogger returns a standard library *log.Logger that forwards
	// every line written to it as an entry at the given level. Used to
	// populate http.Server.ErrorLog and similar hooks.
	GetStdLogger(lvl loglvl.Level, logFlags int) *log.Logger

	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
	Fatal(message string, data interface{}, args ...interface{})
	Panic(message string, data interface{}, args ...interface{})

	// LogDetails logs a fully assembled entry: level, message, optional
	// parent errors, and extra fields.
	LogDetails(lvl loglvl.Level, message string, data interface{}, err []error, fields logfld.Fields, args ...interface{})

	// CheckError logs err at lvlKO if it is non-nil; otherwise, if lvlOK is
	// not NilLevel, logs message at lvlOK. Returns true when err was nil.
	CheckError(lvlKO, lvlOK loglvl.Level, message string, err ...error) bool

	// Entry returns a chainable Entry for callers that need to attach
	// fields or errors before logging.
	Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry

	// Access logs one HTTP access-log line.
	Access(remoteAddr, remoteUser string, localtime time.Time, latency time.Duration, method, request, proto string, status int, size int64) logent.Entry
}

// New returns a new Logger bound to ctx, at InfoLevel, with no output
// destinations configured (SetOptions must be called before it writes
// anywhere).
func New(ctx context.Context) Logger {
	l := &logger{
		x: libctx.New[uint8](ctx),
		f: logfld.New(ctx),
	}

	l.c.Store((*multiCloser)(nil))
	l.SetLevel(loglvl.InfoLevel)

	return l
}
