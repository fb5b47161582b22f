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
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	libiou "github.com/nabbar/appserver/ioutils"
	logcfg "github.com/nabbar/appserver/logger/config"
	loglvl "github.com/nabbar/appserver/logger/level"
	logtps "github.com/nabbar/appserver/logger/types"
)

type hookFileOptions struct {
	create   bool
	filepath string
	flags    int
	modeFile os.FileMode
	modePath os.FileMode
}

type hookFile struct {
	m sync.Mutex
	h *os.File
	w time.Time
	l []logrus.Level
	s bool
	d bool
	t bool
	a bool
	o hookFileOptions
}

func newHookFile(opt logcfg.OptionsFile) (*hookFile, error) {
	if opt.Filepath == "" {
		return nil, fmt.Errorf("logger: missing log file path")
	}

	lvls := make([]logrus.Level, 0, len(opt.LogLevel))
	for _, ls := range opt.LogLevel {
		lvls = append(lvls, loglvl.Parse(ls).Logrus())
	}
	if len(lvls) < 1 {
		lvls = logrus.AllLevels
	}

	flags := os.O_WRONLY | os.O_APPEND
	if opt.Create {
		flags |= os.O_CREATE
	}

	if opt.FileMode == 0 {
		opt.FileMode = 0644
	}
	if opt.PathMode == 0 {
		opt.PathMode = 0755
	}

	h := &hookFile{
		l: lvls,
		s: opt.DisableStack,
		d: opt.DisableTimestamp,
		t: opt.EnableTrace,
		a: opt.EnableAccessLog,
		o: hookFileOptions{
			create:   opt.CreatePath,
			filepath: opt.Filepath,
			flags:    flags,
			modeFile: opt.FileMode,
			modePath: opt.PathMode,
		},
	}

	f, err := h.openCreate()
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	return h, nil
}

func (o *hookFile) openCreate() (*os.File, error) {
	if o.o.create {
		if err := libiou.PathCheckCreate(true, o.o.filepath, o.o.modeFile, o.o.modePath); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(o.o.filepath, o.o.flags, o.o.modeFile)
	if err != nil {
		return nil, err
	}
	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	return f, nil
}

func (o *hookFile) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hookFile) Levels() []logrus.Level {
	return o.l
}

func (o *hookFile) Fire(entry *logrus.Entry) error {
	ent := entry.Dup()
	ent.Level = entry.Level

	if !o.s {
		delete(ent.Data, logtps.FieldStack)
	}
	if !o.d {
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

func (o *hookFile) write(p []byte) (int, error) {
	o.m.Lock()
	defer o.m.Unlock()

	var err error

	if o.h == nil {
		if o.h, err = o.openCreate(); err != nil {
			return 0, fmt.Errorf("logger: cannot open log file '%s': %w", o.o.filepath, err)
		}
	} else if _, err = o.h.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("logger: cannot seek log file '%s' to EOF: %w", o.o.filepath, err)
	}

	return o.h.Write(p)
}

func (o *hookFile) Write(p []byte) (n int, err error) {
	if n, err = o.write(p); err != nil {
		_ = o.Close()
		n, err = o.write(p)
	}

	if err != nil {
		return n, err
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.w.IsZero() || time.Since(o.w) > 30*time.Second {
		_ = o.h.Sync()
		o.w = time.Now()
	}

	return n, err
}

func (o *hookFile) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.h == nil {
		return nil
	}

	var err error
	if e := o.h.Sync(); e != nil {
		err = fmt.Errorf("logger: sync log file '%s': %w", o.o.filepath, e)
	}
	if e := o.h.Close(); e != nil {
		if err != nil {
			err = fmt.Errorf("%w; close log file '%s': %v", err, o.o.filepath, e)
		} else {
			err = fmt.Errorf("logger: close log file '%s': %w", o.o.filepath, e)
		}
	}

	o.h = nil
	return err
}
