package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ClientOptions holds the connection settings for the remote store.
type ClientOptions struct {
	URI            string
	Username       string
	Password       string
	AuthSource     string
	AppName        string
	ConnectTimeout time.Duration
}

// Connect opens a client and verifies it with a ping against the primary.
func Connect(ctx context.Context, opts ClientOptions) (*mongo.Client, error) {
	clientOpts := buildClientOptions(opts)

	connectCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	return client, nil
}

func buildClientOptions(opts ClientOptions) *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	// The access key is the only credential; a username without it is ignored.
	if opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   opts.Username,
			Password:   opts.Password,
			AuthSource: opts.AuthSource,
		})
	}
	return clientOpts
}
