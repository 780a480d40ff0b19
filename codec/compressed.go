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

package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the algorithm of a compressed codec
type Compression int

const (
	// Zstd compresses with Zstandard
	Zstd Compression = iota
	// Brotli compresses with brotli
	Brotli
)

// String implements fmt.Stringer
func (c Compression) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(64<<20),
		zstd.WithDecoderConcurrency(1))
)

type compressedCodec[T any] struct {
	inner       Codec[T]
	compression Compression
}

// Compressed wraps inner and compresses its output
func Compressed[T any](inner Codec[T], compression Compression) Codec[T] {
	return compressedCodec[T]{inner: inner, compression: compression}
}

func (c compressedCodec[T]) Encode(value T) ([]byte, error) {
	data, err := c.inner.Encode(value)
	if err != nil {
		return nil, err
	}

	switch c.compression {
	case Brotli:
		var buffer bytes.Buffer
		writer := brotli.NewWriterLevel(&buffer, brotli.DefaultCompression)
		if _, err := writer.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return zstdEncoder.EncodeAll(data, nil), nil
	}
}

func (c compressedCodec[T]) Decode(data []byte) (T, error) {
	var (
		raw []byte
		err error
	)

	switch c.compression {
	case Brotli:
		raw, err = io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		raw, err = zstdDecoder.DecodeAll(data, nil)
	}

	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decompress %s payload: %w", c.compression, err)
	}
	return c.inner.Decode(raw)
}

func (c compressedCodec[T]) TypeID() string {
	return c.inner.TypeID() + "+" + c.compression.String()
}
