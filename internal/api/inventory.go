package api

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/seed"
)

// Product handlers

type productRequest struct {
	Name        string          `json:"name"`
	Stock       int64           `json:"stock"`
	Price       decimal.Decimal `json:"price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	MinQuantity *int64          `json:"min_quantity,omitempty"`
}

const defaultMinQuantity = 5

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.products.GetAll(r.Context(), shopID(r)))
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.products.LowStock(r.Context(), shopID(r)))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	minQuantity := int64(defaultMinQuantity)
	if req.MinQuantity != nil {
		minQuantity = *req.MinQuantity
	}

	id, err := h.products.Insert(r.Context(), domain.NewProduct{
		Name:        req.Name,
		Stock:       req.Stock,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		MinQuantity: minQuantity,
		ShopID:      shopID(r),
	})
	if err != nil {
		h.writeFailed(w, err, "unable to create product")
		return
	}
	product, err := h.products.Get(r.Context(), shopID(r), id)
	if err != nil {
		respondJSON(w, http.StatusCreated, map[string]any{"id": id})
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var patch domain.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.products.Get(r.Context(), shopID(r), id); err != nil {
		h.lookupFailed(w, err)
		return
	}
	if err := h.products.Update(r.Context(), id, patch); err != nil {
		h.writeFailed(w, err, "unable to update product")
		return
	}
	product, err := h.products.Get(r.Context(), shopID(r), id)
	if err != nil {
		h.lookupFailed(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if _, err := h.products.Get(r.Context(), shopID(r), id); err != nil {
		h.lookupFailed(w, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.writeFailed(w, err, "unable to delete product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) lookupFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	h.log.Error("product lookup failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "unable to load product")
}

// Sales handlers

type saleRequest struct {
	Product   string          `json:"product"`
	ItemsSold int64           `json:"items_sold"`
	Total     decimal.Decimal `json:"total"`
	Date      string          `json:"date,omitempty"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sales.GetAll(r.Context(), shopID(r)))
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.sales.Insert(r.Context(), domain.NewSale{
		Product:   req.Product,
		ItemsSold: req.ItemsSold,
		Total:     req.Total,
		ShopID:    shopID(r),
		Date:      req.Date,
	})
	if err != nil {
		h.writeFailed(w, err, "unable to create sale")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"sale_id": id,
		"product": req.Product,
		"total":   req.Total,
	})
}

// Dashboard

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	metrics, _, err := h.dashboard.Refresh(r.Context(), shopID(r))
	if err != nil {
		h.log.Warn("dashboard unavailable", zap.String("shop", shopID(r)), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "unable to compute dashboard")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// seedDemo replaces the data of the current shop with the demo data set.
// Only the shop owner or an admin may do so.
func (h *Handler) seedDemo(w http.ResponseWriter, r *http.Request) {
	if !hasRole(r, domain.RoleAdmin) {
		shop, err := h.shops.Get(r.Context(), shopID(r))
		if err != nil || shop.OwnerID != userID(r) {
			respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
	}
	res, err := seed.Demo(r.Context(), h.products, h.sales, shopID(r), h.clock.Now())
	if err != nil {
		h.writeFailed(w, err, "unable to seed demo data")
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
