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

package ws_test

import (
	"testing"

	"github.com/nabbar/appserver/ws"
)

func TestValidateCloseCode_Empty(t *testing.T) {
	code, _, err := ws.ValidateCloseCode(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ws.CloseNormal {
		t.Fatalf("expected default close code 1000, got %d", code)
	}
}

func TestValidateCloseCode_OneByteRejected(t *testing.T) {
	_, _, err := ws.ValidateCloseCode([]byte{0x03})
	if err == nil {
		t.Fatalf("expected error for 1-byte close payload")
	}
}

func TestValidateCloseCode_ReservedCodeRejected(t *testing.T) {
	payload := []byte{0x03, 0xEC} // 1004, reserved
	_, _, err := ws.ValidateCloseCode(payload)
	if err == nil {
		t.Fatalf("expected error for reserved close code 1004")
	}
}

func TestValidateCloseCode_ValidCode(t *testing.T) {
	payload := []byte{0x03, 0xE8, 'b', 'y', 'e'} // 1000 "bye"
	code, reason, err := ws.ValidateCloseCode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != ws.CloseNormal || reason != "bye" {
		t.Fatalf("unexpected parse: code=%d reason=%q", code, reason)
	}
}

func TestValidateCloseCode_InvalidUTF8Reason(t *testing.T) {
	payload := []byte{0x03, 0xE8, 0xFF, 0xFE}
	_, _, err := ws.ValidateCloseCode(payload)
	if err == nil {
		t.Fatalf("expected error for invalid utf-8 reason")
	}
}
