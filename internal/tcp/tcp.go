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

package tcp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/go-sockaddr"
)

// SplitHostPort resolves address and returns its IP and port
func SplitHostPort(address string) (string, int, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return "", 0, err
	}
	return addr.IP.String(), addr.Port, nil
}

// JoinHostPort formats host and port as a dialable address
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// AdvertiseIP returns the IP a node bound to host should announce to its
// peers. An unspecified host resolves to a private interface address and,
// failing that, to a public one.
func AdvertiseIP(host string) (string, error) {
	if host == "" {
		host = "0.0.0.0"
	}

	ip, _, err := SplitHostPort(JoinHostPort(host, 0))
	if err != nil {
		return "", fmt.Errorf("invalid host=(%s): %w", host, err)
	}

	if !net.ParseIP(ip).IsUnspecified() {
		return ip, nil
	}

	candidate, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("failed to get private interface addresses: %w", err)
	}

	if candidate == "" {
		candidate, err = sockaddr.GetPublicIP()
		if err != nil {
			return "", fmt.Errorf("failed to get public interface addresses: %w", err)
		}
	}

	parsed := net.ParseIP(candidate)
	if parsed == nil {
		return "", fmt.Errorf("no usable interface address found for host=(%s)", host)
	}
	return parsed.String(), nil
}
