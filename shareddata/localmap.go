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
	"time"
)

// localMap exposes a TTLMap through the context-aware Map contract.
// In-memory operations never fail, so every error is nil.
type localMap[K comparable, V any] struct {
	*TTLMap[K, V]
}

var _ Map[string, int] = localMap[string, int]{}

// AsMap returns x as a Map
func (x *TTLMap[K, V]) AsMap() Map[K, V] {
	return localMap[K, V]{TTLMap: x}
}

func (m localMap[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	value, ok := m.TTLMap.Get(key)
	return value, ok, nil
}

func (m localMap[K, V]) ContainsKey(_ context.Context, key K) (bool, error) {
	return m.TTLMap.ContainsKey(key), nil
}

func (m localMap[K, V]) Len(context.Context) (int, error) {
	return m.TTLMap.Len(), nil
}

func (m localMap[K, V]) Put(_ context.Context, key K, value V) (V, bool, error) {
	old, ok := m.TTLMap.Put(key, value)
	return old, ok, nil
}

func (m localMap[K, V]) PutWithTTL(_ context.Context, key K, value V, ttl time.Duration) (V, bool, error) {
	old, ok := m.TTLMap.PutWithTTL(key, value, ttl)
	return old, ok, nil
}

func (m localMap[K, V]) PutIfAbsent(_ context.Context, key K, value V) (V, bool, error) {
	current, ok := m.TTLMap.PutIfAbsent(key, value)
	return current, ok, nil
}

func (m localMap[K, V]) PutIfAbsentWithTTL(_ context.Context, key K, value V, ttl time.Duration) (V, bool, error) {
	current, ok := m.TTLMap.PutIfAbsentWithTTL(key, value, ttl)
	return current, ok, nil
}

func (m localMap[K, V]) PutAll(_ context.Context, entries map[K]V) error {
	m.TTLMap.PutAll(entries)
	return nil
}

func (m localMap[K, V]) Remove(_ context.Context, key K) (V, bool, error) {
	old, ok := m.TTLMap.Remove(key)
	return old, ok, nil
}

func (m localMap[K, V]) CompareAndDelete(_ context.Context, key K, old V) (bool, error) {
	return m.TTLMap.CompareAndDelete(key, old), nil
}

func (m localMap[K, V]) Replace(_ context.Context, key K, value V) (V, bool, error) {
	old, ok := m.TTLMap.Replace(key, value)
	return old, ok, nil
}

func (m localMap[K, V]) CompareAndSwap(_ context.Context, key K, old, value V) (bool, error) {
	return m.TTLMap.CompareAndSwap(key, old, value), nil
}

func (m localMap[K, V]) Compute(_ context.Context, key K, fn func(K, V, bool) (V, bool)) (V, bool, error) {
	value, ok := m.TTLMap.Compute(key, fn)
	return value, ok, nil
}

func (m localMap[K, V]) ComputeIfAbsent(_ context.Context, key K, fn func(K) (V, bool)) (V, bool, error) {
	value, ok := m.TTLMap.ComputeIfAbsent(key, fn)
	return value, ok, nil
}

func (m localMap[K, V]) ComputeIfPresent(_ context.Context, key K, fn func(K, V) (V, bool)) (V, bool, error) {
	value, ok := m.TTLMap.ComputeIfPresent(key, fn)
	return value, ok, nil
}

func (m localMap[K, V]) Merge(_ context.Context, key K, value V, fn func(V, V) (V, bool)) (V, bool, error) {
	merged, ok := m.TTLMap.Merge(key, value, fn)
	return merged, ok, nil
}

func (m localMap[K, V]) ReplaceAll(_ context.Context, fn func(K, V) V) error {
	m.TTLMap.ReplaceAll(fn)
	return nil
}

func (m localMap[K, V]) Clear(context.Context) error {
	m.TTLMap.Clear()
	return nil
}

func (m localMap[K, V]) Range(_ context.Context, fn func(K, V) bool) error {
	m.TTLMap.Range(fn)
	return nil
}

func (m localMap[K, V]) Keys(context.Context) ([]K, error) {
	return m.TTLMap.Keys(), nil
}

func (m localMap[K, V]) AddListener(_ context.Context, handler EventHandler[K, V]) (string, error) {
	return m.TTLMap.AddListener(handler), nil
}

func (m localMap[K, V]) RemoveListener(_ context.Context, id string) error {
	m.TTLMap.RemoveListener(id)
	return nil
}
