package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/core/ports"
)

type RoleHandler struct {
	service ports.RoleService
}

func NewRoleHandler(service ports.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// List returns every role.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   roleResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	roles, err := h.service.GetAllRoles(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, toRoleResponse(&roles[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a role owned by the caller.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role name"
// @Success      201   {object}  roleResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	role, err := h.service.CreateRole(c.Request().Context(), req.Name, actorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRoleResponse(role))
}
