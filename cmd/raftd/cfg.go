package main

import (
	"fmt"
	"time"

	jsonvalidator "github.com/galdor/go-json-validator"
	"github.com/galdor/go-service/pkg/service"

	"github.com/quorumkv/raft/internal/transport"
)

// ServiceCfg is the top-level configuration file: the ambient service
// section go-service itself validates, plus the raft-specific section below.
type ServiceCfg struct {
	Service service.ServiceCfg `json:"service"`
	Raft    RaftCfg            `json:"raft"`
}

// RaftCfg holds this node's cluster membership, the data directory, and
// the two election/heartbeat timing parameters.
type RaftCfg struct {
	Servers       transport.ServerSet `json:"servers"`
	DataDirectory string              `json:"dataDirectory"`

	MinElectionTimeout jsonDuration `json:"minElectionTimeout"`
	MaxElectionTimeout jsonDuration `json:"maxElectionTimeout"`
	HeartbeatInterval  jsonDuration `json:"heartbeatInterval"`
}

// jsonDuration lets the config file spell out durations as "150ms" the way
// a human would, instead of raw nanosecond integers.
type jsonDuration time.Duration

func (d jsonDuration) Duration() time.Duration { return time.Duration(d) }

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) >= 2 && data[0] == '"' {
		s = string(data[1 : len(data)-1])
	} else {
		s = string(data)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = jsonDuration(parsed)
	return nil
}

func (cfg *ServiceCfg) ValidateJSON(v *jsonvalidator.Validator) {
	v.CheckObject("service", &cfg.Service)
	v.CheckObject("raft", &cfg.Raft)
}

func (cfg *RaftCfg) ValidateJSON(v *jsonvalidator.Validator) {
	v.WithChild("servers", func() {
		for id, server := range cfg.Servers {
			v.Push(string(id))
			v.CheckStringNotEmpty("localAddress", server.LocalAddress)
			v.CheckStringNotEmpty("publicAddress", server.PublicAddress)
			v.Pop()
		}
	})

	v.CheckStringNotEmpty("dataDirectory", cfg.DataDirectory)

	if cfg.MinElectionTimeout > 0 && cfg.MaxElectionTimeout > 0 &&
		cfg.MinElectionTimeout >= cfg.MaxElectionTimeout {
		v.AddError(nil, "invalidElectionTimeout", "maxElectionTimeout must be greater than minElectionTimeout")
	}
}

func DefaultRaftCfg() RaftCfg {
	return RaftCfg{
		Servers:            make(transport.ServerSet),
		MinElectionTimeout: jsonDuration(150 * time.Millisecond),
		MaxElectionTimeout: jsonDuration(300 * time.Millisecond),
		HeartbeatInterval:  jsonDuration(50 * time.Millisecond),
	}
}
