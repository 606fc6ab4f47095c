package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/api/middleware"
	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

type stubUserService struct {
	createFn     func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	getFn        func(ctx context.Context, q domain.UserQuery) (*domain.User, error)
	listFn       func(ctx context.Context) ([]domain.User, error)
	infoFn       func(ctx context.Context, userID string) (*domain.UserInfo, error)
	updateFn     func(ctx context.Context, in ports.UpdateUserInput) error
	addRoleFn    func(ctx context.Context, userID, roleID, addedBy string) (*domain.UserRole, error)
	removeRoleFn func(ctx context.Context, userID, roleID string) error
}

func (s *stubUserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) GetUser(ctx context.Context, q domain.UserQuery) (*domain.User, error) {
	return s.getFn(ctx, q)
}

func (s *stubUserService) GetUsers(ctx context.Context) ([]domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) UserInfo(ctx context.Context, userID string) (*domain.UserInfo, error) {
	return s.infoFn(ctx, userID)
}

func (s *stubUserService) UpdateUser(ctx context.Context, in ports.UpdateUserInput) error {
	return s.updateFn(ctx, in)
}

func (s *stubUserService) AddUserToRole(ctx context.Context, userID, roleID, addedBy string) (*domain.UserRole, error) {
	return s.addRoleFn(ctx, userID, roleID, addedBy)
}

func (s *stubUserService) RemoveUserFromRole(ctx context.Context, userID, roleID string) error {
	return s.removeRoleFn(ctx, userID, roleID)
}

func strPtr(s string) *string { return &s }

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func authenticate(c echo.Context, userID string, roles ...string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextRoles, roles)
}

func TestUserHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.FirstName != "Ada" || in.Email != "ada@example.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "user-1", FirstName: in.FirstName, LastName: in.LastName, Email: strPtr(in.Email), PasswordHash: "hash"}, nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/users", `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"secret1"}`), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "user-1" || resp["email"] != "ada@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, leaked := resp["password"]; leaked {
		t.Fatalf("password hash must never be rendered")
	}
}

func TestUserHandler_Register_Validation(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewUserHandler(stub)

	bodies := []string{
		`{"first_name":"Ada","last_name":"L","password":"secret1"}`,
		`{"first_name":"Ada","last_name":"L","email":"not-an-email","password":"secret1"}`,
		`{"first_name":"Ada","last_name":"L","email":"a@b.co","password":"123"}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/users", body), rec)
		err := handler.Register(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %v", body, err)
		}
	}
}

func TestUserHandler_Register_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubUserService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/users", "not-json"), rec)

	err := handler.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Get(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		getFn: func(ctx context.Context, q domain.UserQuery) (*domain.User, error) {
			if q.ID != "user-1" || q.Email != "" || q.PhoneNumber != "" {
				t.Fatalf("unexpected query %+v", q)
			}
			return &domain.User{
				ID:    "user-1",
				Roles: []domain.UserRole{{RoleID: "r1", Role: &domain.Role{ID: "r1", Name: "ADMIN"}}},
			}, nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("user-1")

	if err := handler.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "ADMIN" {
		t.Fatalf("expected roles [ADMIN], got %v", resp.Roles)
	}
}

func TestUserHandler_Me(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		infoFn: func(ctx context.Context, userID string) (*domain.UserInfo, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %s", userID)
			}
			return &domain.UserInfo{FullName: "Ada Lovelace", Email: domain.NotConfirmed, Phone: domain.NotConfirmed}, nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/me/info", nil), rec)
	authenticate(c, "user-1")

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["full_name"] != "Ada Lovelace" || resp["email"] != "Not confirmed" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestUserHandler_Me_Unauthenticated(t *testing.T) {
	e := newTestEcho()
	handler := NewUserHandler(&stubUserService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/me/info", nil), httptest.NewRecorder())

	err := handler.Me(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestUserHandler_Update_Self(t *testing.T) {
	e := newTestEcho()
	var got ports.UpdateUserInput
	stub := &stubUserService{
		updateFn: func(ctx context.Context, in ports.UpdateUserInput) error {
			got = in
			return nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"field":"first_name","value":"Augusta"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("user-1")
	authenticate(c, "user-1")

	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got.UserID != "user-1" || got.Field != domain.FieldFirstName || got.Value != "Augusta" || got.ActorID != "user-1" {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestUserHandler_Update_OtherUserRequiresAdmin(t *testing.T) {
	e := newTestEcho()
	calls := 0
	stub := &stubUserService{
		updateFn: func(ctx context.Context, in ports.UpdateUserInput) error {
			calls++
			return nil
		},
	}
	handler := NewUserHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"field":"first_name","value":"X"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("user-2")
	authenticate(c, "user-1", "EDITOR")

	if err := handler.Update(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	c = e.NewContext(jsonRequest(http.MethodPatch, "/", `{"field":"first_name","value":"X"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("user-2")
	authenticate(c, "user-1", domain.RoleAdmin)

	if err := handler.Update(c); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one update, got %d", calls)
	}
}

func TestUserHandler_Update_ConfirmationFlagsRequireAdmin(t *testing.T) {
	e := newTestEcho()
	var got []ports.UpdateUserInput
	stub := &stubUserService{
		updateFn: func(ctx context.Context, in ports.UpdateUserInput) error {
			got = append(got, in)
			return nil
		},
	}
	handler := NewUserHandler(stub)

	for _, field := range []string{"is_email_confirmed", "is_phone_confirmed"} {
		c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"field":"`+field+`","value":"true"}`), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues("user-1")
		authenticate(c, "user-1")

		if err := handler.Update(c); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s on self: expected ErrForbidden, got %v", field, err)
		}
	}
	if len(got) != 0 {
		t.Fatalf("service must not be called, got %+v", got)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"field":"is_email_confirmed","value":"true"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("user-1")
	authenticate(c, "admin-1", domain.RoleAdmin)

	if err := handler.Update(c); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if rec.Code != http.StatusNoContent || len(got) != 1 || got[0].Field != domain.FieldIsEmailConfirmed {
		t.Fatalf("unexpected admin update: code=%d inputs=%+v", rec.Code, got)
	}
}

func TestUserHandler_AddRole(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		addRoleFn: func(ctx context.Context, userID, roleID, addedBy string) (*domain.UserRole, error) {
			if userID != "user-2" || roleID != "role-1" || addedBy != "admin-1" {
				t.Fatalf("unexpected args %s %s %s", userID, roleID, addedBy)
			}
			return &domain.UserRole{UserID: userID, RoleID: roleID, AddedBy: strPtr(addedBy)}, nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"role_id":"role-1"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("user-2")
	authenticate(c, "admin-1", domain.RoleAdmin)

	if err := handler.AddRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestUserHandler_RemoveRole(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		removeRoleFn: func(ctx context.Context, userID, roleID string) error {
			if userID != "user-2" || roleID != "role-1" {
				t.Fatalf("unexpected args %s %s", userID, roleID)
			}
			return nil
		},
	}
	handler := NewUserHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id", "role_id")
	c.SetParamValues("user-2", "role-1")

	if err := handler.RemoveRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
