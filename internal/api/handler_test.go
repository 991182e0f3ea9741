package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/dashboard"
	"vilapos/m/internal/database"
	"vilapos/m/internal/migrations"
	"vilapos/m/internal/repository"
	"vilapos/m/internal/seed"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := migrations.NewManager(db, nil)
	require.NoError(t, m.EnsureReady(context.Background()))

	c := clock.NewFixed(testNow)
	h := New(Deps{
		Products:  repository.NewProductRepository(db, m, c, nil),
		Sales:     repository.NewSaleRepository(db, m, c, nil),
		Shops:     repository.NewShopRepository(db, m, c, nil),
		Users:     repository.NewUserRepository(db, m, c, nil),
		Dashboard: dashboard.NewRefresher(dashboard.NewService(db, m, c, nil)),
		Clock:     c,
		Secret:    "test-secret",
	})
	return h.Router()
}

func do(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, srv http.Handler, email, shop string) authResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Maria", "email": email, "password": "segredo", "shop_name": shop,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](t, rec)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	auth := register(t, srv, "Maria@Example.com", "Sabor da Vila")
	assert.NotEmpty(t, auth.Token)
	assert.Empty(t, auth.User.Password)
	assert.Equal(t, "maria@example.com", auth.User.Email)
	assert.Equal(t, domain.RoleUser, auth.User.Role)
	require.NotNil(t, auth.Shop)
	assert.Equal(t, auth.Shop.ID, auth.User.ShopID)
	assert.Equal(t, auth.User.ID, auth.Shop.OwnerID)

	rec := do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Outra", "email": "maria@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/auth/login", "", loginRequest{Email: "maria@example.com", Password: "errada"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, srv, http.MethodPost, "/auth/login", "", loginRequest{Email: "ninguem@example.com", Password: "segredo"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/auth/login", "", loginRequest{Email: "MARIA@example.com", Password: "segredo"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResponse](t, rec)
	assert.Equal(t, auth.Shop.ID, login.User.ShopID)

	rec = do(t, srv, http.MethodGet, "/products", login.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/products", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/products", "not-a-token", nil).Code)

	other := New(Deps{Secret: "other-secret"})
	forged, err := other.generateToken("u1", domain.RoleAdmin, "s1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, http.MethodGet, "/products", forged, nil).Code)
}

func TestShopRequired(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "sem-loja@example.com", "")
	assert.Nil(t, auth.Shop)

	rec := do(t, srv, http.MethodGet, "/products", auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodGet, "/shops", auth.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProductLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "maria@example.com", "Sabor da Vila").Token

	rec := do(t, srv, http.MethodPost, "/products", token, map[string]any{
		"name": "Água", "stock": 100, "price": 1.5, "min_quantity": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Product](t, rec)
	assert.Equal(t, "Água", created.Name)
	assert.True(t, decimal.RequireFromString("1.5").Equal(created.Price))

	rec = do(t, srv, http.MethodPost, "/products", token, map[string]any{"name": "Vela", "stock": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	vela := decode[domain.Product](t, rec)
	assert.Equal(t, int64(defaultMinQuantity), vela.MinQuantity)

	rec = do(t, srv, http.MethodPost, "/products", token, map[string]any{"name": "", "stock": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPost, "/products", token, map[string]any{"name": "X", "shop_id": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "shop id comes from the token only")

	list := decode[[]domain.Product](t, do(t, srv, http.MethodGet, "/products", token, nil))
	require.Len(t, list, 2)
	assert.Equal(t, vela.ID, list[0].ID)

	low := decode[[]domain.Product](t, do(t, srv, http.MethodGet, "/products/low-stock", token, nil))
	require.Len(t, low, 1)
	assert.Equal(t, "Vela", low[0].Name)

	path := fmt.Sprintf("/products/%d", created.ID)
	rec = do(t, srv, http.MethodPut, path, token, map[string]any{"stock": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Product](t, rec)
	assert.Equal(t, int64(5), updated.Stock)
	assert.Equal(t, "Água", updated.Name)

	rec = do(t, srv, http.MethodPut, path, token, map[string]any{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPut, "/products/abc", token, map[string]any{"stock": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPut, "/products/9999", token, map[string]any{"stock": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantIsolation(t *testing.T) {
	srv := newTestServer(t)
	maria := register(t, srv, "maria@example.com", "Loja da Maria").Token
	joao := register(t, srv, "joao@example.com", "Loja do João").Token

	rec := do(t, srv, http.MethodPost, "/products", maria, map[string]any{"name": "Café", "stock": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	cafe := decode[domain.Product](t, rec)

	assert.JSONEq(t, `[]`, do(t, srv, http.MethodGet, "/products", joao, nil).Body.String())

	path := fmt.Sprintf("/products/%d", cafe.ID)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, path, joao, map[string]any{"stock": 0}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, path, joao, nil).Code)
	assert.Len(t, decode[[]domain.Product](t, do(t, srv, http.MethodGet, "/products", maria, nil)), 1)
}

func TestSalesAndDashboard(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "maria@example.com", "Sabor da Vila").Token

	rec := do(t, srv, http.MethodPost, "/products", token, map[string]any{
		"name": "Água", "stock": 100, "price": "1.50", "min_quantity": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/sales", token, map[string]any{"product": "Água", "items_sold": 10, "total": "15.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, srv, http.MethodPost, "/sales", token, map[string]any{"product": "Água", "items_sold": 0, "total": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodPost, "/sales", token, map[string]any{"product": "Água", "items_sold": 1, "total": 1, "date": "ontem"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sales := decode[[]domain.Sale](t, do(t, srv, http.MethodGet, "/sales", token, nil))
	require.Len(t, sales, 1)
	assert.Equal(t, "2026-03-14 10:30:00", sales[0].Date)

	rec = do(t, srv, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[domain.DashboardMetrics](t, rec)
	assert.True(t, decimal.RequireFromString("15").Equal(m.Daily.Total))
	assert.Equal(t, int64(10), m.Daily.Items)
	assert.Equal(t, int64(1), m.Daily.Count)
	assert.True(t, decimal.RequireFromString("150").Equal(m.Stock.TotalStockValue))
	assert.Len(t, m.SalesTrend, dashboard.TrendDays)
}

func TestShopSelection(t *testing.T) {
	srv := newTestServer(t)
	auth := register(t, srv, "maria@example.com", "Matriz")
	other := register(t, srv, "joao@example.com", "Do João")

	rec := do(t, srv, http.MethodPost, "/products", auth.Token, map[string]any{"name": "Café"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/shops", auth.Token, shopRequest{Name: "Filial", Phone: "1199"})
	require.Equal(t, http.StatusCreated, rec.Code)
	filial := decode[domain.Shop](t, rec)

	shops := decode[[]domain.Shop](t, do(t, srv, http.MethodGet, "/shops", auth.Token, nil))
	assert.Len(t, shops, 2)

	rec = do(t, srv, http.MethodPost, "/shops/"+filial.ID+"/select", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	selected := decode[struct {
		Token string      `json:"token"`
		Shop  domain.Shop `json:"shop"`
	}](t, rec)
	assert.Equal(t, filial.ID, selected.Shop.ID)
	assert.JSONEq(t, `[]`, do(t, srv, http.MethodGet, "/products", selected.Token, nil).Body.String())

	rec = do(t, srv, http.MethodPost, "/shops/"+other.Shop.ID+"/select", auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/auth/login", "", loginRequest{Email: "maria@example.com", Password: "segredo"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, filial.ID, decode[authResponse](t, rec).User.ShopID)
}

func TestSeedRequiresOwnerOrAdmin(t *testing.T) {
	srv := newTestServer(t)
	maria := register(t, srv, "maria@example.com", "Sabor da Vila")
	joao := register(t, srv, "joao@example.com", "Do João")
	signer := New(Deps{Secret: "test-secret"})

	intruder, err := signer.generateToken(joao.User.ID, domain.RoleUser, maria.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPost, "/seed", intruder, nil).Code)

	rec := do(t, srv, http.MethodPost, "/seed", maria.Token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, seed.Result{Products: 8, Sales: 33}, decode[seed.Result](t, rec))

	m := decode[domain.DashboardMetrics](t, do(t, srv, http.MethodGet, "/dashboard", maria.Token, nil))
	assert.Equal(t, int64(3), m.Daily.Count)
	assert.Len(t, m.TopProducts, dashboard.TopLimit)

	admin, err := signer.generateToken(joao.User.ID, domain.RoleAdmin, maria.Shop.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/seed", admin, nil).Code)
}

func TestRegisterCannotChooseRole(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Maria", "email": "maria@example.com", "password": "segredo", "role": domain.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	auth := register(t, srv, "maria@example.com", "Sabor da Vila")
	assert.Equal(t, domain.RoleUser, auth.User.Role)
}
