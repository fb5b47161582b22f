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
	"io"
	"sync"
	"time"
)

// multiCloser collects the io.WriteCloser hooks registered for one set of
// logger options (stdout/stderr + any log files) so they can all be closed
// together when options are replaced or the logger itself is closed.
type multiCloser struct {
	m sync.Mutex
	l []io.WriteCloser
}

func newMultiCloser() *multiCloser {
	return &multiCloser{l: make([]io.WriteCloser, 0, 2)}
}

func (c *multiCloser) add(w io.WriteCloser) {
	if c == nil || w == nil {
		return
	}

	c.m.Lock()
	defer c.m.Unlock()

	c.l = append(c.l, w)
}

func (c *multiCloser) Close() error {
	if c == nil {
		return nil
	}

	c.m.Lock()
	defer c.m.Unlock()

	var err error
	for _, w := range c.l {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}

	c.l = nil
	return err
}

// swapCloser installs next as the active closer set, scheduling the
// previous one for a delayed close so in-flight log writes have time to
// land before their destination is torn down.
func (o *logger) swapCloser(next *multiCloser) {
	prev, _ := o.c.Swap(next).(*multiCloser)

	if prev == nil {
		return
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = prev.Close()
	}()
}

func (o *logger) activeCloser() *multiCloser {
	c, _ := o.c.Load().(*multiCloser)
	return c
}

// Write implements io.Writer by logging p as a single InfoLevel message,
// letting *logger be passed anywhere a plain writer is expected.
func (o *logger) Write(p []byte) (n int, err error) {
	o.Info(string(p), nil)
	return len(p), nil
}

// Close releases every output destination currently registered.
func (o *logger) Close() error {
	return o.swapAndCloseAll()
}

func (o *logger) swapAndCloseAll() error {
	prev, _ := o.c.Swap((*multiCloser)(nil)).(*multiCloser)
	if prev == nil {
		return nil
	}
	return prev.Close()
}
