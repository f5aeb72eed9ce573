package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"madera-precisa/internal/cutplan"
	"madera-precisa/internal/domain"
	"madera-precisa/internal/middleware"
	"madera-precisa/internal/repository/memory"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUserHeader = "X-Test-User"
	testRoleHeader = "X-Test-Role"
)

// fakeAuth trusts the test headers instead of a bearer token
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(testUserHeader)
		if userID == "" {
			middleware.RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		role := r.Header.Get(testRoleHeader)
		if role == "" {
			role = domain.RoleCustomer
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), userID, role)))
	})
}

func passThrough(next http.Handler) http.Handler { return next }

type testEnv struct {
	store   *memory.Store
	catalog service.CatalogService
	orders  service.OrderService
	users   service.UserService
	router  chi.Router
}

func newTestEnv(t *testing.T, cfg service.OrderConfig) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()

	env := &testEnv{
		store:   store,
		catalog: service.NewCatalogService(store.Categories(), store.Products(), logger),
		orders:  service.NewOrderService(store.Orders(), nil, cfg, logger),
		users:   service.NewUserService(store.Users(), logger),
		router:  chi.NewRouter(),
	}

	mw := RouteMiddleware{
		Auth:      fakeAuth,
		Admin:     middleware.RequireAdmin(logger),
		RateLimit: passThrough,
	}
	NewCatalogHandler(env.catalog, logger).RegisterRoutes(env.router, mw)
	NewOrderHandler(env.orders, nil, logger).RegisterRoutes(env.router, mw)
	NewContactHandler(service.NewContactService(store.ContactRequests(), logger), logger).RegisterRoutes(env.router, mw)
	NewUserHandler(env.users, logger).RegisterRoutes(env.router, mw)
	NewCutPlanHandler(cutplan.NewPlanner(0, 0, 0), logger).RegisterRoutes(env.router, mw)

	return env
}

type testRequest struct {
	method string
	path   string
	body   interface{}
	raw    io.Reader
	user   string
	role   string
}

func (env *testEnv) do(t *testing.T, req testRequest) *httptest.ResponseRecorder {
	t.Helper()

	body := req.raw
	if req.body != nil {
		b, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if req.user != "" {
		r.Header.Set(testUserHeader, req.user)
	}
	if req.role != "" {
		r.Header.Set(testRoleHeader, req.role)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

func (env *testEnv) product(t *testing.T, name, price string, stock int) *domain.ProductWithCategory {
	t.Helper()
	p, err := env.catalog.CreateProduct(context.Background(), domain.ProductInput{
		Name:          name,
		Description:   name,
		Price:         domain.MustMoney(price),
		ImageURL:      "/images/" + name + ".jpg",
		StockQuantity: &stock,
	})
	require.NoError(t, err)
	return p
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	return decodeBody[middleware.ErrorResponse](t, w).Error
}

func validationFields(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp struct {
		Error struct {
			Details struct {
				ValidationErrors []middleware.ValidationError `json:"validation_errors"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())

	fields := make([]string, 0, len(resp.Error.Details.ValidationErrors))
	for _, e := range resp.Error.Details.ValidationErrors {
		fields = append(fields, e.Field)
	}
	return fields
}
