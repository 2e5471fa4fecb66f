package transport

import (
	"context"
	"errors"
	"io"
	"net/http"

	"zoombid/internal/domain"
	"zoombid/internal/middleware"
	"zoombid/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets clients retry a view without counting it twice
const IdempotencyKeyHeader = "Idempotency-Key"

// ProductWorkflow is the part of the lifecycle orchestrator driven by product routes
type ProductWorkflow interface {
	SubmitProduct(ctx context.Context, draft domain.ProductDraft, sellerID uuid.UUID) (service.Outcome[*domain.Product], error)
	ChangeProductStatus(ctx context.Context, productID uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (service.Outcome[*domain.Product], error)
	RecordView(ctx context.Context, productID uuid.UUID, key string) (int, error)
}

// ProductResponse is a product together with its notification outcome
type ProductResponse struct {
	*domain.Product
	deliveryStatus
}

// ViewResponse carries the view count after a recorded view
type ViewResponse struct {
	ViewCount int `json:"view_count"`
}

// ProductHandler handles HTTP requests for product listings
type ProductHandler struct {
	workflow ProductWorkflow
	products service.ProductService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(workflow ProductWorkflow, products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		workflow: workflow,
		products: products,
		logger:   logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/views", h.RecordView)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.Submit)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/images", h.UploadImage)

			r.With(middleware.RequireAdmin(h.logger)).Put("/{id}/status", h.ChangeStatus)
		})
	})
}

// Submit stores a new pending listing for the caller and notifies admins
func (h *ProductHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}

	var draft domain.ProductDraft
	if err := middleware.DecodeAndValidate(r, &draft); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	out, err := h.workflow.SubmitProduct(r.Context(), draft, actor.ID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Product submitted",
		zap.String("product_id", out.Value.ID.String()),
		zap.String("seller_id", actor.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{
		Product:        out.Value,
		deliveryStatus: newDeliveryStatus(out.Notified, out.DeliveryErr, out.Pending, h.logger),
	})
}

// ChangeStatus applies an admin decision to a pending listing
func (h *ProductHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	var req StatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	out, err := h.workflow.ChangeProductStatus(r.Context(), id, domain.ProductStatus(req.Status), actor.ID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Product status changed",
		zap.String("product_id", id.String()),
		zap.String("status", req.Status),
	)
	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{
		Product:        out.Value,
		deliveryStatus: newDeliveryStatus(out.Notified, out.DeliveryErr, out.Pending, h.logger),
	})
}

// RecordView counts a view. Anonymous callers are allowed.
func (h *ProductHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	count, err := h.workflow.RecordView(r.Context(), id, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ViewResponse{ViewCount: count})
}

// List returns listings matching the query filters, newest first
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update edits a listing owned by the caller
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	var update domain.ProductUpdate
	if err := middleware.DecodeAndValidate(r, &update); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	product, err := h.products.Update(r.Context(), id, update, actor)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	if err := h.products.Delete(r.Context(), id, actor); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage stores the multipart "image" file and appends it to the listing
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageSize+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		h.logger.Debug("Image upload rejected", zap.Error(err))
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.RespondWithDomainError(w, domain.NewValidationError("image", "Image must be at most 5MB"), h.logger)
			return
		}
		middleware.RespondWithDomainError(w, domain.NewValidationError("image", "This field is required"), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	product, err := h.products.AttachImage(r.Context(), id, actor, header.Filename, data)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Product image uploaded", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func productFilterFromQuery(r *http.Request) (domain.ProductFilter, error) {
	var (
		filter domain.ProductFilter
		err    error
	)
	if filter.SellerID, err = queryUUID(r, "seller"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		return filter, err
	}
	q := r.URL.Query()
	filter.Status = domain.ProductStatus(q.Get("status"))
	filter.Search = q.Get("search")
	filter.Categories = queryList(r, "category")
	filter.Conditions = queryList(r, "condition")
	return filter, nil
}
