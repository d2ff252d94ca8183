package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"

	"github.com/qolzam/telar/apps/crud/crud"
	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/request"
)

// HeaderEventsFailed is set on successful mutation responses whose post-commit handlers failed
const HeaderEventsFailed = "X-Events-Failed"

// Handler exposes one crud.Service over HTTP
type Handler[E crud.Entity, P, O any] struct {
	service *crud.Service[E, P, O]
	list    request.Options
}

// NewHandler creates a Handler. list selects the pagination of the list endpoint.
func NewHandler[E crud.Entity, P, O any](service *crud.Service[E, P, O], list request.Options) *Handler[E, P, O] {
	return &Handler[E, P, O]{service: service, list: list}
}

// RegisterRoutes mounts the collection and item routes on router
func (h *Handler[E, P, O]) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.List)
	router.Post("/", h.Create)
	router.Get("/:id", h.Retrieve)
	router.Put("/:id", h.Update)
	router.Patch("/:id", h.PartialUpdate)
	router.Delete("/:id", h.Destroy)
}

// List handles GET on the collection
func (h *Handler[E, P, O]) List(c *fiber.Ctx) error {
	req, err := request.FromFiber(c, h.list)
	if err != nil {
		return crudErrors.HandleServiceError(c, crudErrors.NewValidationError(crudErrors.Violation{
			Property:    "query",
			Constraints: map[string]string{"format": err.Error()},
		}))
	}

	result, err := h.service.List(c.UserContext(), *req)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}
	if result.Paginated() {
		return c.JSON(result.Container)
	}
	return c.JSON(result.Results)
}

// Retrieve handles GET on one item
func (h *Handler[E, P, O]) Retrieve(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}

	out, err := h.service.Retrieve(c.UserContext(), crud.RetrieveRequest{User: request.User(c), ID: id})
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}
	return c.JSON(out)
}

// Create handles POST on the collection
func (h *Handler[E, P, O]) Create(c *fiber.Ctx) error {
	input, err := body(c)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}

	out, err := h.service.Create(c.UserContext(), crud.CreateRequest{User: request.User(c), Input: input})
	return h.mutated(c, http.StatusCreated, out, err)
}

// Update handles PUT on one item
func (h *Handler[E, P, O]) Update(c *fiber.Ctx) error {
	return h.update(c, false)
}

// PartialUpdate handles PATCH on one item
func (h *Handler[E, P, O]) PartialUpdate(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *Handler[E, P, O]) update(c *fiber.Ctx, partial bool) error {
	id, err := h.id(c)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}
	input, err := body(c)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}

	out, err := h.service.Update(c.UserContext(), crud.UpdateRequest{
		User:    request.User(c),
		ID:      id,
		Input:   input,
		Partial: partial,
	})
	return h.mutated(c, http.StatusOK, out, err)
}

// Destroy handles DELETE on one item
func (h *Handler[E, P, O]) Destroy(c *fiber.Ctx) error {
	id, err := h.id(c)
	if err != nil {
		return crudErrors.HandleServiceError(c, err)
	}

	err = h.service.Destroy(c.UserContext(), crud.DestroyRequest{User: request.User(c), ID: id})
	if err != nil && !crudErrors.Committed(err) {
		return crudErrors.HandleServiceError(c, err)
	}
	if err != nil {
		c.Set(HeaderEventsFailed, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// mutated writes a mutation result. Post-commit handler failures keep the success status
// and are reported in HeaderEventsFailed.
func (h *Handler[E, P, O]) mutated(c *fiber.Ctx, status int, out O, err error) error {
	if err != nil {
		if !crudErrors.Committed(err) {
			return crudErrors.HandleServiceError(c, err)
		}
		c.Set(HeaderEventsFailed, err.Error())
	}
	return c.Status(status).JSON(out)
}

// id reads the :id parameter. Malformed ids cannot name an entity and are reported as not found.
func (h *Handler[E, P, O]) id(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Params("id")
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, crudErrors.NewEntityNotFound(h.service.Resource().Name, raw)
	}
	return id, nil
}

func body(c *fiber.Ctx) (map[string]interface{}, error) {
	input := map[string]interface{}{}
	if err := c.BodyParser(&input); err != nil {
		return nil, crudErrors.NewValidationError(crudErrors.Violation{
			Property:    "body",
			Constraints: map[string]string{"json": "request body must be a JSON object"},
		})
	}
	return input, nil
}
