package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vilapos/m/domain"
	"vilapos/m/internal/repository"
)

// Auth Handlers

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Document    string `json:"document,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ShopName    string `json:"shop_name,omitempty"`
	ShopAddress string `json:"shop_address,omitempty"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  domain.User  `json:"user"`
	Shop  *domain.Shop `json:"shop,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	user, err := h.users.Insert(r.Context(), domain.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		Document: req.Document,
		Address:  req.Address,
		Phone:    req.Phone,
		Role:     domain.RoleUser,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	if err != nil {
		h.writeFailed(w, err, "unable to register user")
		return
	}

	var shop *domain.Shop
	if strings.TrimSpace(req.ShopName) != "" {
		created, err := h.shops.Insert(r.Context(), domain.Shop{Name: req.ShopName, Address: req.ShopAddress, OwnerID: user.ID})
		if err != nil {
			h.writeFailed(w, err, "unable to create shop for user")
			return
		}
		if err := h.users.SetShop(r.Context(), user.ID, created.ID); err != nil {
			h.writeFailed(w, err, "unable to select shop")
			return
		}
		user.ShopID = created.ID
		shop = &created
	}

	token, err := h.generateToken(user.ID, user.Role, user.ShopID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user, Shop: shop})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Error("login lookup failed", zap.Error(err))
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role, user.ShopID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Shop handlers

type shopRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	shop, err := h.shops.Insert(r.Context(), domain.Shop{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		OwnerID:     userID(r),
	})
	if err != nil {
		h.writeFailed(w, err, "unable to create shop")
		return
	}
	respondJSON(w, http.StatusCreated, shop)
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.shops.ListByOwner(r.Context(), userID(r)))
}

// selectShop switches the active shop and returns a token scoped to it.
func (h *Handler) selectShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	shop, err := h.shops.Get(r.Context(), id)
	if err != nil || shop.OwnerID != userID(r) {
		respondError(w, http.StatusNotFound, "shop not found")
		return
	}
	if err := h.users.SetShop(r.Context(), userID(r), shop.ID); err != nil {
		h.writeFailed(w, err, "unable to select shop")
		return
	}

	role, _ := r.Context().Value(ctxRole).(string)
	token, err := h.generateToken(userID(r), role, shop.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "shop": shop})
}
