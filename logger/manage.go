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

package logger

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"

	libctx "github.com/nabbar/appserver/context"
	logcfg "github.com/nabbar/appserver/logger/config"
	logfld "github.com/nabbar/appserver/logger/fields"
	loglvl "github.com/nabbar/appserver/logger/level"
)

// Clone returns an independent logger sharing this one's level, fields and
// options. The clone owns its own hooks and must be closed separately.
func (o *logger) Clone() (Logger, error) {
	if o == nil {
		return nil, fmt.Errorf("logger: clone called on nil logger")
	} else if e := o.x.Err(); e != nil {
		return nil, e
	}

	n := &logger{
		x: libctx.New[uint8](o.x.GetContext()),
		f: logfld.New(o.x.GetContext()),
	}
	n.c.Store((*multiCloser)(nil))

	n.SetLevel(o.GetLevel())
	n.SetFields(o.GetFields())

	if e := n.SetOptions(o.GetOptions()); e != nil {
		return nil, e
	}

	return n, nil
}

func (o *logger) SetLevel(lvl loglvl.Level) {
	o.x.Store(keyLevel, lvl)
	o.setLogrusLevel(o.GetLevel())
}

func (o *logger) GetLevel() loglvl.Level {
	if o == nil || o.x == nil {
		return loglvl.NilLevel
	} else if i, l := o.x.Load(keyLevel); !l {
		return loglvl.NilLevel
	} else if v, k := i.(loglvl.Level); !k {
		return loglvl.NilLevel
	} else {
		return v
	}
}

func (o *logger) SetFields(field logfld.Fields) {
	if o == nil {
		return
	}
	o.f.Clean()
	o.f.Merge(field)
}

func (o *logger) GetFields() logfld.Fields {
	if o == nil {
		return logfld.New(context.Background())
	}
	return o.f.Clone()
}

// SetOptions tears down the previous output destinations and builds new
// ones from opt: the stdout/stderr pair (split by level so errors land on
// stderr) and one file hook per entry in opt.LogFile. Hooks are registered
// synchronously with a fresh logrus.Logger before the swap, so no message
// is lost between the old and new configuration.
func (o *logger) SetOptions(opt *logcfg.Options) error {
	if opt == nil {
		opt = &logcfg.Options{}
	}

	o.optionsMerge(opt)

	lvl := o.GetLevel()
	obj := logrus.New()
	obj.SetLevel(lvl.Logrus())
	obj.SetOutput(io.Discard)

	mc := newMultiCloser()

	if opt.Stdout == nil || !opt.Stdout.DisableStandard {
		f := defaultFormatter(opt.Stdout != nil && opt.Stdout.DisableColor)

		out := newHookStd(opt.Stdout, stdOut, []logrus.Level{
			logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel,
		})
		out.RegisterHook(obj)
		mc.add(out)

		errH := newHookStd(opt.Stdout, stdErr, []logrus.Level{
			logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel,
		})
		errH.RegisterHook(obj)
		mc.add(errH)
	}

	for _, fo := range opt.LogFile {
		h, err := newHookFile(fo)
		if err != nil {
			return err
		}
		h.RegisterHook(obj)
		mc.add(h)
	}

	obj.SetFormatter(defaultFormatter(false))

	o.swapCloser(mc)
	o.x.Store(keyOptions, opt)
	o.x.Store(keyLogrus, obj)

	return nil
}

func (o *logger) GetOptions() *logcfg.Options {
	if o == nil || o.x == nil {
		return &logcfg.Options{}
	} else if i, l := o.x.Load(keyOptions); !l {
		return &logcfg.Options{}
	} else if v, k := i.(*logcfg.Options); !k || v == nil {
		return &logcfg.Options{}
	} else {
		return v
	}
}

// GetStdLogger returns a standard library *log.Logger whose every Write
// forwards as one entry at lvl. Used to populate http.Server.ErrorLog so
// net/http's own diagnostics flow through the same structured pipeline.
func (o *logger) GetStdLogger(lvl loglvl.Level, logFlags int) *log.Logger {
	return log.New(&levelWriter{l: o, lvl: lvl}, "", logFlags)
}

type levelWriter struct {
	l   *logger
	lvl loglvl.Level
}

func (w *levelWriter) Write(p []byte) (int, error) {
	w.l.LogDetails(w.lvl, string(p), nil, nil, nil)
	return len(p), nil
}
