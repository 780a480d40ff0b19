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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	sderrors "github.com/tochemey/shareddata/errors"
	"github.com/tochemey/shareddata/shareddata"
)

// versionSize is the size of the version prefix of a stored value
const versionSize = 16

// envelope is the stored form of a map value. The version changes on
// every write and lets an expiry timer detect that its write was replaced.
type envelope struct {
	version uuid.UUID
	payload []byte
}

func newEnvelope(payload []byte) envelope {
	return envelope{version: uuid.New(), payload: payload}
}

func (e envelope) bytes() []byte {
	data := make([]byte, versionSize+len(e.payload))
	copy(data, e.version[:])
	copy(data[versionSize:], e.payload)
	return data
}

func decodeEnvelope(data []byte) (envelope, error) {
	if len(data) < versionSize {
		return envelope{}, sderrors.NewErrCodec(fmt.Errorf("stored value of %d bytes has no version", len(data)))
	}

	var version uuid.UUID
	copy(version[:], data[:versionSize])
	payload := make([]byte, len(data)-versionSize)
	copy(payload, data[versionSize:])
	return envelope{version: version, payload: payload}, nil
}

// message is the published form of a map change
type message struct {
	Kind     shareddata.EventKind `json:"kind"`
	Key      string               `json:"key"`
	OldValue []byte               `json:"old,omitempty"`
	NewValue []byte               `json:"new,omitempty"`
}

func (msg message) encode() ([]byte, error) {
	return json.Marshal(msg)
}

func decodeMessage(payload string) (shareddata.Event[string, []byte], error) {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, sderrors.NewErrCodec(err)
	}

	switch msg.Kind {
	case shareddata.Added:
		return shareddata.NewEntryAdded(msg.Key, msg.NewValue), nil
	case shareddata.Updated:
		return shareddata.NewEntryUpdated(msg.Key, msg.OldValue, msg.NewValue), nil
	case shareddata.Removed:
		return shareddata.NewEntryRemoved(msg.Key, msg.OldValue), nil
	case shareddata.Expired:
		return shareddata.NewEntryExpired(msg.Key, msg.OldValue), nil
	default:
		return nil, sderrors.NewErrCodec(fmt.Errorf("unknown event kind=(%d)", msg.Kind))
	}
}
