package service

import (
	"context"
	"sync"
	"time"

	"zoombid/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the result of a lifecycle action. The mutation in Value is
// committed even when DeliveryErr is set. Pending means the notification
// fan-out is still running in the background.
type Outcome[T any] struct {
	Value       T
	Notified    int
	DeliveryErr error
	Pending     bool
}

// WorkflowOptions tunes the orchestrator
type WorkflowOptions struct {
	// FanOutWait bounds how long a submission waits for its admin fan-out
	FanOutWait time.Duration
}

// Workflow sequences one lifecycle mutation with its notifications.
// The lifecycle result is authoritative and delivery is best effort.
type Workflow struct {
	products   ProductService
	bids       BidService
	dispatcher NotificationDispatcher
	publisher  EventPublisher
	opts       WorkflowOptions
	logger     *zap.Logger

	tasks sync.WaitGroup
}

// NewWorkflow creates a Workflow. publisher may be nil.
func NewWorkflow(
	products ProductService,
	bids BidService,
	dispatcher NotificationDispatcher,
	publisher EventPublisher,
	opts WorkflowOptions,
	logger *zap.Logger,
) *Workflow {
	return &Workflow{
		products:   products,
		bids:       bids,
		dispatcher: dispatcher,
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
	}
}

type dispatchResult struct {
	report DispatchReport
	err    error
}

// SubmitProduct stores a pending product and notifies every admin. The
// fan-out outlives the request if it takes longer than FanOutWait.
func (w *Workflow) SubmitProduct(ctx context.Context, draft domain.ProductDraft, sellerID uuid.UUID) (Outcome[*domain.Product], error) {
	event, err := w.products.Submit(ctx, draft, sellerID)
	if err != nil {
		return Outcome[*domain.Product]{}, err
	}
	w.publish(ctx, event)

	out := Outcome[*domain.Product]{Value: event.Product}

	done := make(chan dispatchResult, 1)
	dctx := context.WithoutCancel(ctx)
	w.tasks.Add(1)
	go func() {
		defer w.tasks.Done()
		report, err := w.dispatcher.Dispatch(dctx, event)
		if err != nil {
			w.logger.Warn("product submission fan-out incomplete",
				zap.String("product_id", event.Product.ID.String()),
				zap.Int("delivered", report.Delivered),
				zap.Int("failed", report.Failed),
				zap.Error(err),
			)
		}
		done <- dispatchResult{report: report, err: err}
	}()

	timer := time.NewTimer(w.opts.FanOutWait)
	defer timer.Stop()

	select {
	case res := <-done:
		out.Notified = res.report.Delivered
		out.DeliveryErr = res.err
	case <-timer.C:
		out.Pending = true
	case <-ctx.Done():
		out.Pending = true
	}
	return out, nil
}

// ChangeProductStatus applies an admin decision and notifies the seller
func (w *Workflow) ChangeProductStatus(ctx context.Context, productID uuid.UUID, status domain.ProductStatus, actorID uuid.UUID) (Outcome[*domain.Product], error) {
	event, err := w.products.ChangeStatus(ctx, productID, status, actorID)
	if err != nil {
		return Outcome[*domain.Product]{}, err
	}

	out := Outcome[*domain.Product]{Value: event.Product}
	out.Notified, out.DeliveryErr = w.dispatch(ctx, event)
	return out, nil
}

// RecordView counts a product view. Views produce no notifications.
func (w *Workflow) RecordView(ctx context.Context, productID uuid.UUID, key string) (int, error) {
	return w.products.RecordView(ctx, productID, key)
}

// PlaceBid records a pending bid. Placing a bid produces no notifications.
func (w *Workflow) PlaceBid(ctx context.Context, draft domain.BidDraft, buyerID uuid.UUID) (*domain.Bid, error) {
	return w.bids.Place(ctx, draft, buyerID)
}

// ChangeBidStatus applies the seller's decision and notifies the buyer
func (w *Workflow) ChangeBidStatus(ctx context.Context, bidID uuid.UUID, status domain.BidStatus, actor domain.Actor) (Outcome[*domain.Bid], error) {
	event, err := w.bids.ChangeStatus(ctx, bidID, status, actor)
	if err != nil {
		return Outcome[*domain.Bid]{}, err
	}

	out := Outcome[*domain.Bid]{Value: event.Bid}
	out.Notified, out.DeliveryErr = w.dispatch(ctx, event)
	return out, nil
}

// DeleteBid removes a bid. Notifications already sent for it stay.
func (w *Workflow) DeleteBid(ctx context.Context, bidID uuid.UUID, actor domain.Actor) error {
	return w.bids.Delete(ctx, bidID, actor)
}

// Wait blocks until background fan-outs finish or ctx is done
func (w *Workflow) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch delivers the notifications of a single recipient event inline.
// The mutation is already committed, so the request context is detached.
func (w *Workflow) dispatch(ctx context.Context, event *domain.Event) (int, error) {
	w.publish(ctx, event)

	report, err := w.dispatcher.Dispatch(context.WithoutCancel(ctx), event)
	if err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("kind", string(event.Kind)),
			zap.String("product_id", event.Product.ID.String()),
			zap.Error(err),
		)
	}
	return report.Delivered, err
}

func (w *Workflow) publish(ctx context.Context, event *domain.Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("failed to publish event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}
