package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gator-market/apiserver/internal/services"
	"github.com/gator-market/apiserver/internal/store"
	"github.com/gator-market/apiserver/types"
)

const (
	maxImageMemory = 32 << 20
	formFieldImage = "image"
	itemNotFound   = "Item not found"
	notItemOwner   = "Not authorized to modify this item"
)

// ItemHandler provides HTTP handlers for marketplace listings.
type ItemHandler struct {
	listingService *services.ListingService
	imagesEnabled  bool
}

// NewItemHandler constructs a handler with the provided service.
func NewItemHandler(listingService *services.ListingService, imagesEnabled bool) *ItemHandler {
	return &ItemHandler{
		listingService: listingService,
		imagesEnabled:  imagesEnabled,
	}
}

// ItemRouter registers item routes on the given router. Browsing is
// public; every mutation goes through the auth middleware.
func ItemRouter(r chi.Router, handler *ItemHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/active", handler.ListActive)
	r.With(authMiddleware).Get("/my", handler.ListMine)
	r.With(authMiddleware).Post("/", handler.CreateItem)
	r.Route("/{itemID}", func(r chi.Router) {
		r.With(authMiddleware).Delete("/", handler.DeleteItem)
		r.With(authMiddleware).Put("/mark-sold", handler.MarkSold)
		if handler.imagesEnabled {
			r.With(authMiddleware).Post("/image", handler.UploadImage)
		}
	})
}

type CreateItemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
}

// ListActive returns all active listings with seller projections.
// No authentication required.
func (h *ItemHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.listingService.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListMine returns the authenticated account's own listings, sold ones
// included.
func (h *ItemHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	items, err := h.listingService.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem creates a listing owned by the authenticated account.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.listingService.Create(r.Context(), actor, types.Listing{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Image:       req.Image,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// DeleteItem removes a listing under the owner-or-admin rule.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.listingService.Delete(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, itemNotFound)
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, notItemOwner)
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete item")
		}
		return
	}

	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Item deleted successfully"})
}

// MarkSold flips the listing to inactive and returns the updated
// projection. Re-invocation leaves it inactive without error.
func (h *ItemHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.listingService.MarkSold(r.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, itemNotFound)
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, notItemOwner)
		default:
			writeError(w, http.StatusInternalServerError, "failed to mark item sold")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UploadImage stores a listing image in object storage and records the
// object key on the listing.
func (h *ItemHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "Could not validate credentials")
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	updated, err := h.listingService.AttachImage(r.Context(), actor, id, header.Filename, file, header.Size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, itemNotFound)
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, notItemOwner)
		default:
			writeError(w, http.StatusInternalServerError, "failed to store image")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func parseItemID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid item id")
	}
	return id, nil
}
