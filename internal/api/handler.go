package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/dashboard"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/repository"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
	ctxShopID ctxKey = "shopID"
)

const tokenTTL = 24 * time.Hour

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Products  *repository.ProductRepository
	Sales     *repository.SaleRepository
	Shops     *repository.ShopRepository
	Users     *repository.UserRepository
	Dashboard *dashboard.Refresher
	Clock     clock.Clock
	Secret    string
	Logger    *zap.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	products  *repository.ProductRepository
	sales     *repository.SaleRepository
	shops     *repository.ShopRepository
	users     *repository.UserRepository
	dashboard *dashboard.Refresher
	clock     clock.Clock
	secret    string
	log       *zap.Logger
}

// New constructs a Handler.
func New(d Deps) *Handler {
	c := d.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Handler{
		products:  d.Products,
		sales:     d.Sales,
		shops:     d.Shops,
		users:     d.Users,
		dashboard: d.Dashboard,
		clock:     c,
		secret:    d.Secret,
		log:       logging.OrNop(d.Logger).Named("api"),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/shops", func(r chi.Router) {
			r.Post("/", h.createShop)
			r.Get("/", h.listShops)
			r.Post("/{id}/select", h.selectShop)
		})

		// Everything below works on the shop carried by the token.
		pr.Group(func(sr chi.Router) {
			sr.Use(h.shopMiddleware)

			sr.Route("/products", func(r chi.Router) {
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Get("/low-stock", h.lowStock)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
			})

			sr.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
			})

			sr.Get("/dashboard", h.getDashboard)
			sr.Post("/seed", h.seedDemo)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	ShopID string `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID, role, shopID string) (string, error) {
	now := time.Now()
	claims := authClaims{
		UserID: userID,
		Role:   role,
		ShopID: shopID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok || claims.UserID == "" {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		ctx = context.WithValue(ctx, ctxShopID, claims.ShopID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// shopMiddleware rejects tokens that have no shop selected.
func (h *Handler) shopMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shopID(r) == "" {
			respondError(w, http.StatusForbidden, "no shop selected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasRole(r *http.Request, allowed ...string) bool {
	current, _ := r.Context().Value(ctxRole).(string)
	for _, role := range allowed {
		if current == role {
			return true
		}
	}
	return false
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxUserID).(string)
	return id
}

func shopID(r *http.Request) string {
	id, _ := r.Context().Value(ctxShopID).(string)
	return id
}

// Helpers

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// writeFailed maps a repository write error to a response.
func (h *Handler) writeFailed(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		h.log.Error(message, zap.Error(err))
		respondError(w, http.StatusInternalServerError, message)
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
