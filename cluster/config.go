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
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	oconfig "github.com/tochemey/olric/config"
	"github.com/tochemey/olric/pkg/storage"

	"github.com/tochemey/shareddata/log"
)

const (
	// countersMap holds every distributed counter
	countersMap = "shareddata.counters"
	// locksMap holds the named locks and the per-key locks of the maps
	locksMap = "shareddata.locks"
	// mapPrefix prefixes the storage name of a distributed map
	mapPrefix = "shareddata.map."
	// channelPrefix prefixes the event channel of a distributed map
	channelPrefix = "shareddata."
)

func storageName(name string) string {
	return mapPrefix + name
}

func channelName(name string) string {
	return channelPrefix + name
}

// buildConfig builds the configuration of the embedded olric node
func (x *Backend) buildConfig() (*oconfig.Config, error) {
	logLevel := "INFO"
	switch x.logger.LogLevel() {
	case log.DebugLevel:
		logLevel = "DEBUG"
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		logLevel = "ERROR"
	case log.WarningLevel:
		logLevel = "WARN"
	default:
		// pass
	}

	peers := mapset.NewThreadUnsafeSet[string]()
	for _, peer := range x.peers {
		if peer = strings.TrimSpace(peer); peer != "" {
			peers.Add(peer)
		}
	}

	cfg := &oconfig.Config{
		BindAddr:          x.advertiseIP,
		BindPort:          x.peersPort,
		ReadRepair:        true,
		ReplicaCount:      x.replicaCount,
		WriteQuorum:       1,
		ReadQuorum:        1,
		MemberCountQuorum: 1,
		Peers:             peers.ToSlice(),
		DMaps: &oconfig.DMaps{
			Engine: &oconfig.Engine{
				Config: storage.NewConfig(nil).ToMap(),
			},
		},
		KeepAlivePeriod:          oconfig.DefaultKeepAlivePeriod,
		PartitionCount:           x.partitionCount,
		BootstrapTimeout:         x.bootstrapTimeout,
		ReplicationMode:          oconfig.SyncReplicationMode,
		RoutingTablePushInterval: time.Minute,
		JoinRetryInterval:        oconfig.DefaultJoinRetryInterval,
		MaxJoinAttempts:          oconfig.DefaultMaxJoinAttempts,
		LogLevel:                 logLevel,
		LogOutput:                newLogWriter(x.logger),
		Hasher:                   &hasherWrapper{hasher: x.hasher},
		TriggerBalancerInterval:  oconfig.DefaultTriggerBalancerInterval,
	}

	if x.logger.LogLevel() == log.DebugLevel {
		cfg.LogVerbosity = oconfig.DefaultLogVerbosity
	}

	mconfig, err := oconfig.NewMemberlistConfig("lan")
	if err != nil {
		return nil, fmt.Errorf("failed to configure the members list: %w", err)
	}

	mconfig.BindAddr = x.advertiseIP
	mconfig.BindPort = x.discoveryPort
	mconfig.AdvertiseAddr = x.advertiseIP
	mconfig.AdvertisePort = x.discoveryPort
	// nodes of different backends sharing a network must not merge
	mconfig.Label = fmt.Sprintf("shareddata-%s", strings.ToLower(x.name))
	cfg.MemberlistConfig = mconfig

	return cfg, nil
}
