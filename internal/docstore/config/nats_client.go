package config

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsOptions translates cfg into connection options.
func natsOptions(cfg NATSConfig) []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
	}
	if cfg.ClientName != "" {
		opts = append(opts, nats.Name(cfg.ClientName))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	return opts
}

// ConnectNATS opens a connection for the change feed sink
func ConnectNATS(cfg NATSConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL, natsOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}
	return nc, nil
}
