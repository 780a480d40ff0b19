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

package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/shareddata"
)

func TestEnvelope(t *testing.T) {
	entry := newEnvelope([]byte("payload"))
	data := entry.bytes()
	assert.Len(t, data, versionSize+len("payload"))

	decoded, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, entry.version, decoded.version)
	assert.Equal(t, []byte("payload"), decoded.payload)

	assert.NotEqual(t, entry.version, newEnvelope([]byte("payload")).version)

	_, err = decodeEnvelope([]byte("short"))
	assert.ErrorIs(t, err, sderrors.ErrCodec)
}

func TestMessage(t *testing.T) {
	testCases := []struct {
		name     string
		message  message
		expected shareddata.Event[string, []byte]
	}{
		{
			name:     "Added",
			message:  message{Kind: shareddata.Added, Key: "k", NewValue: []byte("v")},
			expected: shareddata.NewEntryAdded("k", []byte("v")),
		},
		{
			name:     "Updated",
			message:  message{Kind: shareddata.Updated, Key: "k", OldValue: []byte("a"), NewValue: []byte("b")},
			expected: shareddata.NewEntryUpdated("k", []byte("a"), []byte("b")),
		},
		{
			name:     "Removed",
			message:  message{Kind: shareddata.Removed, Key: "k", OldValue: []byte("a")},
			expected: shareddata.NewEntryRemoved("k", []byte("a")),
		},
		{
			name:     "Expired",
			message:  message{Kind: shareddata.Expired, Key: "k", OldValue: []byte("a")},
			expected: shareddata.NewEntryExpired("k", []byte("a")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := tc.message.encode()
			require.NoError(t, err)
			event, err := decodeMessage(string(payload))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, event)
		})
	}

	t.Run("With unknown kind", func(t *testing.T) {
		_, err := decodeMessage(`{"kind":42,"key":"k"}`)
		assert.ErrorIs(t, err, sderrors.ErrCodec)
	})
	t.Run("With invalid payload", func(t *testing.T) {
		_, err := decodeMessage("{")
		assert.ErrorIs(t, err, sderrors.ErrCodec)
	})
}
