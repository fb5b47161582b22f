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

package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

type fakeResponder struct {
	started bool
	failed  error
}

func (f *fakeResponder) Started() bool { return f.started }
func (f *fakeResponder) Fail(_ context.Context, err error) {
	f.failed = err
}

func noRecv(_ context.Context) (dispatch.Event, error) { return dispatch.Event{}, nil }
func noSend(_ context.Context, _ dispatch.Event) error  { return nil }

func TestRun_SuccessAfterResponse(t *testing.T) {
	r := &fakeResponder{started: true}
	app := func(_ context.Context, _ *scope.Scope, _ dispatch.Receive, _ dispatch.Send) error {
		return nil
	}

	if err := dispatch.Run(context.Background(), app, &scope.Scope{}, noRecv, noSend, r, nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if r.failed != nil {
		t.Fatalf("expected no Fail call, got %v", r.failed)
	}
}

func TestRun_ErrorBeforeResponse(t *testing.T) {
	r := &fakeResponder{started: false}
	wantErr := errors.New("boom")
	app := func(_ context.Context, _ *scope.Scope, _ dispatch.Receive, _ dispatch.Send) error {
		return wantErr
	}

	if err := dispatch.Run(context.Background(), app, &scope.Scope{}, noRecv, noSend, r, nil); err != nil {
		t.Fatalf("expected Run to swallow pre-response error, got %v", err)
	}
	if r.failed != wantErr {
		t.Fatalf("expected Fail(%v), got %v", wantErr, r.failed)
	}
}

func TestRun_ErrorAfterResponse(t *testing.T) {
	r := &fakeResponder{started: true}
	wantErr := errors.New("boom")
	app := func(_ context.Context, _ *scope.Scope, _ dispatch.Receive, _ dispatch.Send) error {
		return wantErr
	}

	err := dispatch.Run(context.Background(), app, &scope.Scope{}, noRecv, noSend, r, nil)
	if err == nil {
		t.Fatal("expected propagated error after response start")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped %v, got %v", wantErr, err)
	}
	if r.failed != nil {
		t.Fatalf("expected no Fail call once response started, got %v", r.failed)
	}
}

func TestRun_NoResponse(t *testing.T) {
	r := &fakeResponder{started: false}
	app := func(_ context.Context, _ *scope.Scope, _ dispatch.Receive, _ dispatch.Send) error {
		return nil
	}

	if err := dispatch.Run(context.Background(), app, &scope.Scope{}, noRecv, noSend, r, nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !errors.Is(r.failed, dispatch.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", r.failed)
	}
}
