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
	"bytes"
	"io"
	"regexp"

	"github.com/tochemey/shareddata/log"
)

// logWriter routes the olric log lines into the backend logger
type logWriter struct {
	logger log.Logger
	info   *regexp.Regexp
	debug  *regexp.Regexp
	warn   *regexp.Regexp
	error  *regexp.Regexp
}

var _ io.Writer = (*logWriter)(nil)

func newLogWriter(logger log.Logger) *logWriter {
	return &logWriter{
		logger: logger,
		info:   regexp.MustCompile(`\[INFO\] (.+)`),
		debug:  regexp.MustCompile(`\[DEBUG\] (.+)`),
		warn:   regexp.MustCompile(`\[WARN\] (.+)`),
		error:  regexp.MustCompile(`\[ERROR\] (.+)`),
	}
}

// Write implements io.Writer. Lines without a known level are dropped.
func (l *logWriter) Write(message []byte) (int, error) {
	text := string(bytes.TrimSpace(message))

	if matches := l.error.FindStringSubmatch(text); len(matches) > 1 {
		l.logger.Error(matches[1])
		return len(message), nil
	}

	if matches := l.warn.FindStringSubmatch(text); len(matches) > 1 {
		l.logger.Warn(matches[1])
		return len(message), nil
	}

	if matches := l.info.FindStringSubmatch(text); len(matches) > 1 {
		l.logger.Info(matches[1])
		return len(message), nil
	}

	if matches := l.debug.FindStringSubmatch(text); len(matches) > 1 {
		l.logger.Debug(matches[1])
	}
	return len(message), nil
}
