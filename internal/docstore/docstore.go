// Package docstore wires the document gateway: the store port, the document
// client, the change feed and the HTTP adapter.
package docstore

import (
	"context"
	"fmt"

	httpadapter "docstore-gateway/internal/docstore/adapter/http"
	"docstore-gateway/internal/docstore/adapter/persistence"
	"docstore-gateway/internal/docstore/config"
	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	"docstore-gateway/internal/docstore/usecase"
	"docstore-gateway/internal/shared/eventbus"
	"docstore-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// DocstoreModule holds the assembled gateway components.
type DocstoreModule struct {
	Config   *config.Config
	Store    repository.DocumentStore
	EventBus *eventbus.EventBus
	Client   usecase.DocumentClientInterface
	Handler  *httpadapter.HTTPHandler
	Sinks    []persistence.ChangeFeedSink
	Logger   logger.Logger
}

// NewDocstoreModule builds the module around store and attaches each change
// feed sink to the event bus.
func NewDocstoreModule(cfg *config.Config, store repository.DocumentStore, log logger.Logger, sinks ...persistence.ChangeFeedSink) (*DocstoreModule, error) {
	if cfg == nil {
		return nil, fmt.Errorf("docstore module needs a configuration")
	}
	if store == nil {
		return nil, fmt.Errorf("docstore module needs a document store")
	}

	log.Info("Initializing Docstore Module...")

	bus := eventbus.NewEventBus(log)
	for _, sink := range sinks {
		persistence.Attach(bus, sink)
		log.Infof("Change feed sink %s attached", sink.Name())
	}

	client := usecase.NewDocumentClient(cfg.Store.DatabaseName, store, bus, log)

	m := &DocstoreModule{
		Config:   cfg,
		Store:    store,
		EventBus: bus,
		Client:   client,
		Sinks:    sinks,
		Logger:   log,
	}
	m.Handler = httpadapter.NewDocumentHTTPHandler(client, m, log)

	log.Infof("Docstore Module ready for database %s", cfg.Store.DatabaseName)
	return m, nil
}

// RegisterRoutes registers the module's HTTP routes on router.
func (m *DocstoreModule) RegisterRoutes(router fiber.Router) {
	m.Handler.RegisterRoutes(router)
}

// HealthCheck pings the store and every change feed sink.
func (m *DocstoreModule) HealthCheck(ctx context.Context) error {
	if err := m.Store.Ping(ctx); err != nil {
		return fmt.Errorf("document store health check failed: %w", err)
	}
	for _, sink := range m.Sinks {
		if err := sink.Ping(ctx); err != nil {
			return fmt.Errorf("%s change feed health check failed: %w", sink.Name(), err)
		}
	}
	return nil
}

// Stop detaches the change feed sinks.
func (m *DocstoreModule) Stop() {
	for _, changeType := range model.AllChangeTypes {
		m.EventBus.Unsubscribe(string(changeType))
	}
	m.Logger.Info("Docstore Module stopped")
}
