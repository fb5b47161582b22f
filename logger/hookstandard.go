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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"

	logcfg "github.com/nabbar/appserver/logger/config"
	logtps "github.com/nabbar/appserver/logger/types"
)

type stdWriter uint8

const (
	stdOut stdWriter = iota
	stdErr
)

type hookStd struct {
	w io.Writer
	l []logrus.Level
	s bool // disable stack field
	d bool // disable timestamp field
	t bool // enable trace fields
	a bool // access-log (message only) mode
}

func newHookStd(opt *logcfg.OptionsStd, s stdWriter, lvls []logrus.Level) *hookStd {
	if len(lvls) < 1 {
		lvls = logrus.AllLevels
	}

	var w io.Writer

	if opt != nil && opt.DisableColor {
		if s == stdErr {
			w = os.Stderr
		} else {
			w = os.Stdout
		}
	} else {
		if s == stdErr {
			w = colorable.NewColorableStderr()
		} else {
			w = colorable.NewColorableStdout()
		}
	}

	h := &hookStd{w: w, l: lvls}

	if opt != nil {
		h.s = opt.DisableStack
		h.d = opt.DisableTimestamp
		h.t = opt.EnableTrace
		h.a = opt.EnableAccessLog
	}

	return h
}

func (o *hookStd) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hookStd) Levels() []logrus.Level {
	return o.l
}

func (o *hookStd) Fire(entry *logrus.Entry) error {
	ent := entry.Dup()
	ent.Level = entry.Level

	if o.s {
		delete(ent.Data, logtps.FieldStack)
	}
	if o.d {
		delete(ent.Data, logtps.FieldTime)
	}
	if !o.t {
		delete(ent.Data, logtps.FieldCaller)
		delete(ent.Data, logtps.FieldFile)
		delete(ent.Data, logtps.FieldLine)
	}

	var (
		p []byte
		e error
	)

	if o.a {
		if len(entry.Message) == 0 {
			return nil
		}
		msg := entry.Message
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		p = []byte(msg)
	} else {
		if len(ent.Data) < 1 {
			return nil
		} else if p, e = ent.Bytes(); e != nil {
			return e
		}
	}

	_, e = o.Write(p)
	return e
}

func (o *hookStd) Write(p []byte) (n int, err error) {
	if o.w == nil {
		return 0, fmt.Errorf("logger: standard writer not configured")
	}
	return o.w.Write(p)
}

func (o *hookStd) Close() error {
	return nil
}
