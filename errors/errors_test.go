// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	err := NewErrInvalidTTL(-time.Second)
	require.EqualError(t, err, "ttl=(-1s) default time-to-live value must be zero or greater")
	assert.ErrorIs(t, err, ErrInvalidTTL)

	err = NewErrTypeMismatch("sessions", map[string]int{}, map[string]string{})
	require.EqualError(t, err, "map=(sessions) existing=(map[string]int) requested=(map[string]string) named map exists with a different type")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	cause := errors.New("unexpected end of JSON input")
	err = NewErrCodec(cause)
	assert.ErrorIs(t, err, ErrCodec)
	assert.ErrorIs(t, err, cause)
}
