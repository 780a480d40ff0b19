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
	"encoding/json"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Codec converts values of type T to bytes and back. It is the
// serialization boundary between typed maps and backends storing bytes.
// Encode must be deterministic: equal values produce equal bytes, since
// byte equality stands in for value equality on such backends.
type Codec[T any] interface {
	// Encode converts value to bytes
	Encode(value T) ([]byte, error)
	// Decode converts bytes produced by Encode back to a value
	Decode(data []byte) (T, error)
	// TypeID identifies the encoded type and the format
	TypeID() string
}

type jsonCodec[T any] struct {
	typeID string
}

// JSON returns a codec using encoding/json. Map keys are sorted by
// encoding/json which keeps the encoding deterministic.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{typeID: "json:" + typeName[T]()}
}

func (c jsonCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (c jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}

func (c jsonCodec[T]) TypeID() string {
	return c.typeID
}

type stringCodec struct{}

// String returns the identity codec of strings
func String() Codec[string] {
	return stringCodec{}
}

func (stringCodec) Encode(value string) ([]byte, error) { return []byte(value), nil }
func (stringCodec) Decode(data []byte) (string, error)  { return string(data), nil }
func (stringCodec) TypeID() string                      { return "string" }

type bytesCodec struct{}

// Bytes returns the identity codec of byte slices
func Bytes() Codec[[]byte] {
	return bytesCodec{}
}

func (bytesCodec) Encode(value []byte) ([]byte, error) { return value, nil }
func (bytesCodec) Decode(data []byte) ([]byte, error)  { return data, nil }
func (bytesCodec) TypeID() string                      { return "bytes" }

type protoCodec[T proto.Message] struct {
	factory func() T
	typeID  string
}

// Proto returns a codec of protocol buffer messages. factory creates the
// empty message Decode unmarshals into.
func Proto[T proto.Message](factory func() T) Codec[T] {
	name := factory().ProtoReflect().Descriptor().FullName()
	return protoCodec[T]{factory: factory, typeID: "proto:" + string(name)}
}

func (c protoCodec[T]) Encode(value T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(value)
}

func (c protoCodec[T]) Decode(data []byte) (T, error) {
	message := c.factory()
	if err := proto.Unmarshal(data, message); err != nil {
		var zero T
		return zero, err
	}
	return message, nil
}

func (c protoCodec[T]) TypeID() string {
	return c.typeID
}

// For returns the default codec of T: String for strings, Bytes for byte
// slices and JSON otherwise.
func For[T any]() Codec[T] {
	var zero T
	switch any(zero).(type) {
	case string:
		return any(String()).(Codec[T])
	case []byte:
		return any(Bytes()).(Codec[T])
	default:
		return JSON[T]()
	}
}

func typeName[T any]() string {
	return fmt.Sprint(reflect.TypeFor[T]())
}
