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
	"bytes"
	"path"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	libctx "github.com/nabbar/appserver/context"
	logcfg "github.com/nabbar/appserver/logger/config"
	logfld "github.com/nabbar/appserver/logger/fields"
	loglvl "github.com/nabbar/appserver/logger/level"
)

const (
	keyLevel uint8 = iota
	keyOptions
	keyLogrus
)

var self = path.Base(reflect.TypeOf(logger{}).PkgPath())

type logger struct {
	x libctx.Config[uint8]
	f logfld.Fields
	c atomic.Value // *multiCloser
}

func defaultFormatter(disableColor bool) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		ForceColors:            !disableColor,
		DisableColors:          disableColor,
		ForceQuote:             true,
		DisableTimestamp:       true,
		TimestampFormat:        time.RFC3339,
		DisableLevelTruncation: true,
		PadLevelText:           true,
		QuoteEmptyFields:       true,
	}
}

func (o *logger) setLogrusLevel(lvl loglvl.Level) {
	if i, l := o.x.Load(keyLogrus); !l {
		return
	} else if v, k := i.(*logrus.Logger); !k || v == nil {
		return
	} else {
		v.SetLevel(lvl.Logrus())
	}
}

func (o *logger) getLogrus() *logrus.Logger {
	if i, l := o.x.Load(keyLogrus); !l {
		return nil
	} else if v, k := i.(*logrus.Logger); !k {
		return nil
	} else {
		return v
	}
}

func (o *logger) optionsMerge(opt *logcfg.Options) {
	if opt == nil {
		return
	}

	i, l := o.x.Load(keyOptions)
	if !l {
		return
	}

	v, k := i.(*logcfg.Options)
	if !k || v == nil || !opt.InheritDefault {
		return
	}

	base := v.Clone()
	base.Merge(opt)
	*opt = *base
}

func (o *logger) getStack() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]

	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func (o *logger) getCaller() runtime.Frame {
	pc := make([]uintptr, 10)
	n := runtime.Callers(1, pc)

	if n > 0 {
		frames := runtime.CallersFrames(pc[:n])
		more := true

		for more {
			var frame runtime.Frame
			frame, more = frames.Next()

			if strings.Contains(frame.Function, self) {
				continue
			}

			return frame
		}
	}

	return runtime.Frame{Function: "unknown", File: "unknown", Line: 0}
}
