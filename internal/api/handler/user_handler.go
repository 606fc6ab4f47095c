package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// UserHandler handles HTTP requests for user accounts and role assignments.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.service.CreateUser(c.Request().Context(), ports.CreateUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// List returns every user.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.GetUsers(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single user by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), domain.UserQuery{ID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Me returns the public summary of the authenticated user.
//
// @Summary      Current user info
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserInfo
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users/me/info [get]
func (h *UserHandler) Me(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	info, err := h.service.UserInfo(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// Update changes one field of a user. Callers may update themselves; ADMIN
// may update anyone. Only ADMIN may set the confirmation flags.
//
// @Summary      Update a user field
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string             true  "User id"
// @Param        body  body  updateUserRequest  true  "Field and new value"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	targetID := c.Param("id")
	actorID, admin, err := requireSelfOrAdmin(c, targetID)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	field := domain.UserField(req.Field)
	// Confirmation flags gate the contact details shown by /me/info.
	if field.IsFlag() && !admin {
		return domain.ErrForbidden
	}

	if err := h.service.UpdateUser(c.Request().Context(), ports.UpdateUserInput{
		UserID:  targetID,
		Field:   field,
		Value:   req.Value,
		ActorID: actorID,
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddRole assigns a role to a user.
//
// @Summary      Assign a role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      assignRoleRequest  true  "Role to assign"
// @Success      201   {object}  userRoleResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/users/{id}/roles [post]
func (h *UserHandler) AddRole(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req assignRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ur, err := h.service.AddUserToRole(c.Request().Context(), c.Param("id"), req.RoleID, actorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userRoleResponse{
		UserID:  ur.UserID,
		RoleID:  ur.RoleID,
		AddedBy: ur.AddedBy,
		AddedOn: ur.AddedOn,
	})
}

// RemoveRole removes a role assignment. Removing an absent assignment succeeds.
//
// @Summary      Remove a role
// @Tags         users
// @Security     BearerAuth
// @Param        id       path  string  true  "User id"
// @Param        role_id  path  string  true  "Role id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Router       /api/users/{id}/roles/{role_id} [delete]
func (h *UserHandler) RemoveRole(c echo.Context) error {
	if err := h.service.RemoveUserFromRole(c.Request().Context(), c.Param("id"), c.Param("role_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
