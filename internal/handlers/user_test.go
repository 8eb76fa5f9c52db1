package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reelgen-backend/internal/models"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	u.ID = uuid.New()
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.byEmail {
		out = append(out, u)
	}
	return out, nil
}

func TestUserCreate(t *testing.T) {
	repo := &fakeUserRepo{byEmail: map[string]*models.User{}}
	h := NewUserHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"  Alice@Example.COM "}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var user models.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if len(repo.created) != 1 {
		t.Errorf("created %d users, want 1", len(repo.created))
	}
}

func TestUserCreate_ExistingEmailIsIdempotent(t *testing.T) {
	existing := &models.User{ID: uuid.New(), Email: "bob@example.com"}
	repo := &fakeUserRepo{byEmail: map[string]*models.User{"bob@example.com": existing}}
	h := NewUserHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"bob@example.com"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an existing email", rec.Code)
	}
	var user models.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.ID != existing.ID {
		t.Errorf("returned user %s, want the existing row %s", user.ID, existing.ID)
	}
	if len(repo.created) != 0 {
		t.Error("no new row may be created for a known email")
	}
}

func TestUserCreate_InvalidEmail(t *testing.T) {
	h := NewUserHandler(&fakeUserRepo{byEmail: map[string]*models.User{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var errResp models.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error code = %q", errResp.Error.Code)
	}
}

func TestUserGet_InvalidID(t *testing.T) {
	h := NewUserHandler(&fakeUserRepo{byEmail: map[string]*models.User{}})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/nope", nil), "id", "nope")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUserGetByEmail_MissingParam(t *testing.T) {
	h := NewUserHandler(&fakeUserRepo{byEmail: map[string]*models.User{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/by-email", nil)
	rec := httptest.NewRecorder()
	h.GetByEmail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// withURLParam injects a chi route parameter into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
