package transport

import (
	"context"
	"net/http"

	"zoombid/internal/domain"
	"zoombid/internal/middleware"
	"zoombid/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BidWorkflow is the part of the lifecycle orchestrator driven by bid routes
type BidWorkflow interface {
	PlaceBid(ctx context.Context, draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error)
	ChangeBidStatus(ctx context.Context, bidID uuid.UUID, status domain.BidStatus, actor domain.Actor) (service.Outcome[*domain.Bid], error)
	DeleteBid(ctx context.Context, bidID uuid.UUID, actor domain.Actor) error
}

// BidResponse is a bid together with its notification outcome
type BidResponse struct {
	*domain.Bid
	deliveryStatus
}

// BidHandler handles HTTP requests for bids
type BidHandler struct {
	workflow BidWorkflow
	bids     service.BidService
	logger   *zap.Logger
}

// NewBidHandler creates a new BidHandler
func NewBidHandler(workflow BidWorkflow, bids service.BidService, logger *zap.Logger) *BidHandler {
	return &BidHandler{
		workflow: workflow,
		bids:     bids,
		logger:   logger,
	}
}

// RegisterRoutes registers all bid routes. Every bid route needs a caller.
func (h *BidHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/bids", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Place)
		r.Get("/", h.List)
		r.Put("/{id}/status", h.ChangeStatus)
		r.Delete("/{id}", h.Delete)
	})
}

// Place records a pending bid from the caller
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}

	var draft domain.BidDraft
	if err := middleware.DecodeAndValidate(r, &draft); err != nil {
		h.logger.Debug("Bid validation failed", zap.Error(err))
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	bid, err := h.workflow.PlaceBid(r.Context(), draft, actor.ID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Bid placed",
		zap.String("bid_id", bid.ID.String()),
		zap.String("product_id", bid.ProductID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, bid)
}

// List returns bids filtered by ?product=, ?seller= and ?buyer=
func (h *BidHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.BidFilter
		err    error
	)
	if filter.ProductID, err = queryUUID(r, "product"); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	if filter.SellerID, err = queryUUID(r, "seller"); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	if filter.BuyerID, err = queryUUID(r, "buyer"); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	bids, err := h.bids.List(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, bids)
}

// ChangeStatus accepts or rejects a pending bid
func (h *BidHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
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

	out, err := h.workflow.ChangeBidStatus(r.Context(), id, domain.BidStatus(req.Status), actor)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Bid status changed",
		zap.String("bid_id", id.String()),
		zap.String("status", req.Status),
	)
	middleware.RespondWithJSON(w, http.StatusOK, BidResponse{
		Bid:            out.Value,
		deliveryStatus: newDeliveryStatus(out.Notified, out.DeliveryErr, out.Pending, h.logger),
	})
}

func (h *BidHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	if err := h.workflow.DeleteBid(r.Context(), id, actor); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("Bid deleted", zap.String("bid_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
