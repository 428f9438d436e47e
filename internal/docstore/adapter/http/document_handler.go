package http

import (
	"context"
	"net/url"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/usecase"
	"docstore-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// HealthChecker reports whether the gateway's dependencies are reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HTTPHandler exposes the document client over REST
type HTTPHandler struct {
	Client usecase.DocumentClientInterface
	Health HealthChecker
	Log    logger.Logger
}

// NewDocumentHTTPHandler creates a new HTTPHandler. health may be nil.
func NewDocumentHTTPHandler(client usecase.DocumentClientInterface, health HealthChecker, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		Client: client,
		Health: health,
		Log:    log.WithComponent("http"),
	}
}

// RegisterRoutes registers the document routes under /Database. The action
// segment tells apart routes that otherwise share a shape.
func (h *HTTPHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	db := router.Group("/Database")
	db.Get("/GetDocument/:collection/:documentId/:partitionKey", h.GetDocument)
	db.Get("/QueryDocuments/:collection/:query/:partitionKey", h.QueryDocuments)
	db.Get("/QueryDocumentsCrossPartition/:collection/:query", h.QueryDocumentsCrossPartition)
	db.Post("/CreateIfNotExists/:collection/:partitionKey", h.CreateIfNotExists)
	db.Post("/CreateOrUpdateDocument/:collection/:partitionKey", h.CreateOrUpdateDocument)
	db.Delete("/DeleteDocument/:collection/:documentId/:partitionKey", h.DeleteDocument)
}

// GetDocument handles GET /Database/GetDocument/:collection/:documentId/:partitionKey
func (h *HTTPHandler) GetDocument(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "documentId", "partitionKey")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.Read(c.UserContext(), params[0], params[1], params[2]))
}

// QueryDocuments handles GET /Database/QueryDocuments/:collection/:query/:partitionKey
func (h *HTTPHandler) QueryDocuments(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "query", "partitionKey")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.Query(c.UserContext(), params[0], params[1], params[2]))
}

// QueryDocumentsCrossPartition handles GET /Database/QueryDocumentsCrossPartition/:collection/:query
func (h *HTTPHandler) QueryDocumentsCrossPartition(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "query")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.QueryCrossPartition(c.UserContext(), params[0], params[1]))
}

// CreateIfNotExists handles POST /Database/CreateIfNotExists/:collection/:partitionKey
func (h *HTTPHandler) CreateIfNotExists(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "partitionKey")
	if err != nil {
		return badRequest(c, err.Error())
	}
	doc, err := model.ParseDocument(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.CreateIfNotExists(c.UserContext(), params[0], doc, params[1]))
}

// CreateOrUpdateDocument handles POST /Database/CreateOrUpdateDocument/:collection/:partitionKey
func (h *HTTPHandler) CreateOrUpdateDocument(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "partitionKey")
	if err != nil {
		return badRequest(c, err.Error())
	}
	doc, err := model.ParseDocument(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.CreateOrUpdate(c.UserContext(), params[0], doc, params[1]))
}

// DeleteDocument handles DELETE /Database/DeleteDocument/:collection/:documentId/:partitionKey
func (h *HTTPHandler) DeleteDocument(c *fiber.Ctx) error {
	params, err := pathParams(c, "collection", "documentId", "partitionKey")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.writeOutcome(c, h.Client.Delete(c.UserContext(), params[0], params[1], params[2]))
}

// HealthCheck handles GET /health
func (h *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	if h.Health != nil {
		if err := h.Health.HealthCheck(c.UserContext()); err != nil {
			h.Log.WithContext(c.UserContext()).Warnf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "UNHEALTHY",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "HEALTHY"})
}

// writeOutcome serializes an Outcome. Sequences are drained before the status
// is written so a cursor failure still yields a 400.
func (h *HTTPHandler) writeOutcome(c *fiber.Ctx, outcome model.Outcome) error {
	switch outcome.Kind() {
	case model.OutcomeBadRequest:
		return badRequest(c, outcome.Message())

	case model.OutcomeCreated:
		c.Location(outcome.Location())
		doc, _ := outcome.Document()
		return c.Status(fiber.StatusCreated).JSON(doc)

	default:
		if seq, ok := outcome.Documents(); ok {
			docs, err := model.CollectDocuments(seq)
			if err != nil {
				h.Log.WithContext(c.UserContext()).Warnf("Query stream failed: %v", err)
				return badRequest(c, err.Error())
			}
			return c.Status(fiber.StatusOK).JSON(docs)
		}
		if doc, ok := outcome.Document(); ok {
			return c.Status(fiber.StatusOK).JSON(doc)
		}
		c.Status(fiber.StatusOK)
		return nil
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// pathParams returns the named route parameters, percent-decoded. The values
// are copied out of the request buffer, which fasthttp reuses once the
// handler returns.
func pathParams(c *fiber.Ctx, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		v, err := url.PathUnescape(c.Params(name))
		if err != nil {
			return nil, err
		}
		values[i] = utils.CopyString(v)
	}
	return values, nil
}
