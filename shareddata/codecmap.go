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

package shareddata

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/shareddata/codec"
	"github.com/tochemey/shareddata/errors"
)

// codecMap exposes a binary map as a typed Map. Keys and values are
// encoded with the configured codecs; a failing codec surfaces as ErrCodec.
type codecMap[K comparable, V any] struct {
	binary Map[string, []byte]
	keys   codec.Codec[K]
	values codec.Codec[V]
}

var _ Map[int, string] = (*codecMap[int, string])(nil)

func newCodecMap[K comparable, V any](binary Map[string, []byte], keys codec.Codec[K], values codec.Codec[V]) *codecMap[K, V] {
	if keys == nil {
		keys = codec.For[K]()
	}
	if values == nil {
		values = codec.For[V]()
	}
	return &codecMap[K, V]{binary: binary, keys: keys, values: values}
}

func (m *codecMap[K, V]) encodeKey(key K) (string, error) {
	data, err := m.keys.Encode(key)
	if err != nil {
		return "", errors.NewErrCodec(err)
	}
	return string(data), nil
}

func (m *codecMap[K, V]) decodeKey(key string) (K, error) {
	decoded, err := m.keys.Decode([]byte(key))
	if err != nil {
		return decoded, errors.NewErrCodec(err)
	}
	return decoded, nil
}

func (m *codecMap[K, V]) encodeValue(value V) ([]byte, error) {
	data, err := m.values.Encode(value)
	if err != nil {
		return nil, errors.NewErrCodec(err)
	}
	return data, nil
}

// decodeValue decodes data when ok is true and returns the zero value otherwise
func (m *codecMap[K, V]) decodeValue(data []byte, ok bool) (V, error) {
	var zero V
	if !ok {
		return zero, nil
	}
	value, err := m.values.Decode(data)
	if err != nil {
		return zero, errors.NewErrCodec(err)
	}
	return value, nil
}

func (m *codecMap[K, V]) decodeResult(data []byte, ok bool, err error) (V, bool, error) {
	if err != nil {
		var zero V
		return zero, false, err
	}
	value, err := m.decodeValue(data, ok)
	return value, ok && err == nil, err
}

func (m *codecMap[K, V]) Name() string {
	return m.binary.Name()
}

func (m *codecMap[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	encoded, err := m.encodeKey(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return m.decodeResult(m.binary.Get(ctx, encoded))
}

func (m *codecMap[K, V]) ContainsKey(ctx context.Context, key K) (bool, error) {
	encoded, err := m.encodeKey(key)
	if err != nil {
		return false, err
	}
	return m.binary.ContainsKey(ctx, encoded)
}

func (m *codecMap[K, V]) Len(ctx context.Context) (int, error) {
	return m.binary.Len(ctx)
}

func (m *codecMap[K, V]) Put(ctx context.Context, key K, value V) (V, bool, error) {
	return m.PutWithTTL(ctx, key, value, -1)
}

func (m *codecMap[K, V]) PutWithTTL(ctx context.Context, key K, value V, ttl time.Duration) (V, bool, error) {
	encodedKey, encodedValue, err := m.encodeEntry(key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return m.decodeResult(m.binary.PutWithTTL(ctx, encodedKey, encodedValue, ttl))
}

func (m *codecMap[K, V]) PutIfAbsent(ctx context.Context, key K, value V) (V, bool, error) {
	return m.PutIfAbsentWithTTL(ctx, key, value, -1)
}

func (m *codecMap[K, V]) PutIfAbsentWithTTL(ctx context.Context, key K, value V, ttl time.Duration) (V, bool, error) {
	encodedKey, encodedValue, err := m.encodeEntry(key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return m.decodeResult(m.binary.PutIfAbsentWithTTL(ctx, encodedKey, encodedValue, ttl))
}

func (m *codecMap[K, V]) PutAll(ctx context.Context, entries map[K]V) error {
	encoded := make(map[string][]byte, len(entries))
	for key, value := range entries {
		encodedKey, encodedValue, err := m.encodeEntry(key, value)
		if err != nil {
			return err
		}
		encoded[encodedKey] = encodedValue
	}
	return m.binary.PutAll(ctx, encoded)
}

func (m *codecMap[K, V]) Remove(ctx context.Context, key K) (V, bool, error) {
	encoded, err := m.encodeKey(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return m.decodeResult(m.binary.Remove(ctx, encoded))
}

func (m *codecMap[K, V]) CompareAndDelete(ctx context.Context, key K, old V) (bool, error) {
	encodedKey, encodedOld, err := m.encodeEntry(key, old)
	if err != nil {
		return false, err
	}
	return m.binary.CompareAndDelete(ctx, encodedKey, encodedOld)
}

func (m *codecMap[K, V]) Replace(ctx context.Context, key K, value V) (V, bool, error) {
	encodedKey, encodedValue, err := m.encodeEntry(key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}
	return m.decodeResult(m.binary.Replace(ctx, encodedKey, encodedValue))
}

func (m *codecMap[K, V]) CompareAndSwap(ctx context.Context, key K, old, value V) (bool, error) {
	encodedKey, encodedOld, err := m.encodeEntry(key, old)
	if err != nil {
		return false, err
	}
	encodedValue, err := m.encodeValue(value)
	if err != nil {
		return false, err
	}
	return m.binary.CompareAndSwap(ctx, encodedKey, encodedOld, encodedValue)
}

func (m *codecMap[K, V]) Compute(ctx context.Context, key K, fn func(K, V, bool) (V, bool)) (V, bool, error) {
	encodedKey, err := m.encodeKey(key)
	if err != nil {
		var zero V
		return zero, false, err
	}

	var codecErr error
	data, ok, err := m.binary.Compute(ctx, encodedKey, func(_ string, raw []byte, loaded bool) ([]byte, bool) {
		old, err := m.decodeValue(raw, loaded)
		if err != nil {
			codecErr = err
			return raw, loaded
		}
		value, keep := fn(key, old, loaded)
		if !keep {
			return nil, false
		}
		encoded, err := m.encodeValue(value)
		if err != nil {
			codecErr = err
			return raw, loaded
		}
		return encoded, true
	})
	return m.decodeResult(data, ok, firstError(codecErr, err))
}

func (m *codecMap[K, V]) ComputeIfAbsent(ctx context.Context, key K, fn func(K) (V, bool)) (V, bool, error) {
	encodedKey, err := m.encodeKey(key)
	if err != nil {
		var zero V
		return zero, false, err
	}

	var codecErr error
	data, ok, err := m.binary.ComputeIfAbsent(ctx, encodedKey, func(string) ([]byte, bool) {
		value, ok := fn(key)
		if !ok {
			return nil, false
		}
		encoded, err := m.encodeValue(value)
		if err != nil {
			codecErr = err
			return nil, false
		}
		return encoded, true
	})
	return m.decodeResult(data, ok, firstError(codecErr, err))
}

func (m *codecMap[K, V]) ComputeIfPresent(ctx context.Context, key K, fn func(K, V) (V, bool)) (V, bool, error) {
	encodedKey, err := m.encodeKey(key)
	if err != nil {
		var zero V
		return zero, false, err
	}

	var codecErr error
	data, ok, err := m.binary.ComputeIfPresent(ctx, encodedKey, func(_ string, raw []byte) ([]byte, bool) {
		old, err := m.decodeValue(raw, true)
		if err != nil {
			codecErr = err
			return raw, true
		}
		value, keep := fn(key, old)
		if !keep {
			return nil, false
		}
		encoded, err := m.encodeValue(value)
		if err != nil {
			codecErr = err
			return raw, true
		}
		return encoded, true
	})
	return m.decodeResult(data, ok, firstError(codecErr, err))
}

func (m *codecMap[K, V]) Merge(ctx context.Context, key K, value V, fn func(V, V) (V, bool)) (V, bool, error) {
	encodedKey, encodedValue, err := m.encodeEntry(key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}

	var codecErr error
	data, ok, err := m.binary.Merge(ctx, encodedKey, encodedValue, func(raw, _ []byte) ([]byte, bool) {
		old, err := m.decodeValue(raw, true)
		if err != nil {
			codecErr = err
			return raw, true
		}
		merged, keep := fn(old, value)
		if !keep {
			return nil, false
		}
		encoded, err := m.encodeValue(merged)
		if err != nil {
			codecErr = err
			return raw, true
		}
		return encoded, true
	})
	return m.decodeResult(data, ok, firstError(codecErr, err))
}

func (m *codecMap[K, V]) ReplaceAll(ctx context.Context, fn func(K, V) V) error {
	var codecErr error
	err := m.binary.ReplaceAll(ctx, func(rawKey string, raw []byte) []byte {
		if codecErr != nil {
			return raw
		}
		key, err := m.decodeKey(rawKey)
		if err != nil {
			codecErr = err
			return raw
		}
		old, err := m.decodeValue(raw, true)
		if err != nil {
			codecErr = err
			return raw
		}
		encoded, err := m.encodeValue(fn(key, old))
		if err != nil {
			codecErr = err
			return raw
		}
		return encoded
	})
	return firstError(codecErr, err)
}

func (m *codecMap[K, V]) Clear(ctx context.Context) error {
	return m.binary.Clear(ctx)
}

func (m *codecMap[K, V]) Range(ctx context.Context, fn func(K, V) bool) error {
	var codecErr error
	err := m.binary.Range(ctx, func(rawKey string, raw []byte) bool {
		key, err := m.decodeKey(rawKey)
		if err != nil {
			codecErr = err
			return false
		}
		value, err := m.decodeValue(raw, true)
		if err != nil {
			codecErr = err
			return false
		}
		return fn(key, value)
	})
	return firstError(codecErr, err)
}

func (m *codecMap[K, V]) Keys(ctx context.Context) ([]K, error) {
	raw, err := m.binary.Keys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]K, 0, len(raw))
	for _, rawKey := range raw {
		key, err := m.decodeKey(rawKey)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *codecMap[K, V]) DefaultTTL() time.Duration {
	return m.binary.DefaultTTL()
}

func (m *codecMap[K, V]) SetDefaultTTL(ttl time.Duration) error {
	return m.binary.SetDefaultTTL(ttl)
}

// AddListener decodes the binary events before handing them to handler.
// An event that cannot be decoded is reported as a handler failure.
func (m *codecMap[K, V]) AddListener(ctx context.Context, handler EventHandler[K, V]) (string, error) {
	return m.binary.AddListener(ctx, EventHandlerFunc[string, []byte](func(event Event[string, []byte]) error {
		decoded, err := m.decodeEvent(event)
		if err != nil {
			return err
		}
		return handler.Handle(decoded)
	}))
}

func (m *codecMap[K, V]) RemoveListener(ctx context.Context, id string) error {
	return m.binary.RemoveListener(ctx, id)
}

func (m *codecMap[K, V]) encodeEntry(key K, value V) (string, []byte, error) {
	encodedKey, err := m.encodeKey(key)
	if err != nil {
		return "", nil, err
	}
	encodedValue, err := m.encodeValue(value)
	if err != nil {
		return "", nil, err
	}
	return encodedKey, encodedValue, nil
}

func (m *codecMap[K, V]) decodeEvent(event Event[string, []byte]) (Event[K, V], error) {
	key, err := m.decodeKey(event.Key())
	if err != nil {
		return nil, err
	}

	switch e := event.(type) {
	case EntryAdded[string, []byte]:
		value, err := m.decodeValue(e.NewValue(), true)
		if err != nil {
			return nil, err
		}
		return NewEntryAdded(key, value), nil
	case EntryUpdated[string, []byte]:
		oldValue, err := m.decodeValue(e.OldValue(), true)
		if err != nil {
			return nil, err
		}
		newValue, err := m.decodeValue(e.NewValue(), true)
		if err != nil {
			return nil, err
		}
		return NewEntryUpdated(key, oldValue, newValue), nil
	case EntryRemoved[string, []byte]:
		value, err := m.decodeValue(e.OldValue(), true)
		if err != nil {
			return nil, err
		}
		return NewEntryRemoved(key, value), nil
	case EntryExpired[string, []byte]:
		value, err := m.decodeValue(e.OldValue(), true)
		if err != nil {
			return nil, err
		}
		return NewEntryExpired(key, value), nil
	default:
		return nil, errors.NewErrCodec(fmt.Errorf("unexpected event %T", event))
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
