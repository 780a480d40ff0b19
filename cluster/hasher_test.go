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

	"github.com/tochemey/shareddata/hash"
)

type fixedHasher uint64

func (h fixedHasher) HashCode([]byte) uint64 {
	return uint64(h)
}

func TestHasherWrapper(t *testing.T) {
	wrapper := &hasherWrapper{hasher: fixedHasher(20)}
	assert.EqualValues(t, 20, wrapper.Sum64([]byte("some-key")))

	key := []byte("shareddata.map.sessions")
	wrapper = &hasherWrapper{hasher: hash.DefaultHasher()}
	assert.Equal(t, hash.DefaultHasher().HashCode(key), wrapper.Sum64(key))
}
