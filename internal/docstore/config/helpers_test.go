package config

import "github.com/nats-io/nats.go"

type natsOptionsProbe struct {
	nats.Options
}
