package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/metrics"
)

// StatusAggregator keeps a request's status in line with its items.
type StatusAggregator struct {
	logger zerolog.Logger
}

// NewStatusAggregator creates a new StatusAggregator
func NewStatusAggregator(logger zerolog.Logger) *StatusAggregator {
	return &StatusAggregator{logger: logger}
}

// Recompute derives the request status from the current item statuses and
// persists it when it differs from the stored value. It must run inside the
// transaction that wrote the item; the parent row lock serializes sibling
// updates so neither write is lost.
func (a *StatusAggregator) Recompute(ctx context.Context, tx TransferStore, requestID int64) (models.RequestStatus, bool, error) {
	parent, err := tx.LockRequest(ctx, requestID)
	if err != nil {
		return "", false, err
	}

	statuses, err := tx.ItemStatuses(ctx, requestID)
	if err != nil {
		return "", false, fmt.Errorf("error loading item statuses: %w", err)
	}

	next, ok := models.AggregateStatus(statuses)
	if !ok {
		metrics.StatusRecomputeTotal.WithLabelValues("empty").Inc()
		return parent.Status, false, nil
	}
	if next == parent.Status {
		metrics.StatusRecomputeTotal.WithLabelValues("unchanged").Inc()
		return next, false, nil
	}

	if err := tx.UpdateRequestStatus(ctx, requestID, next); err != nil {
		return "", false, fmt.Errorf("error updating request status: %w", err)
	}
	metrics.StatusRecomputeTotal.WithLabelValues("changed").Inc()

	a.logger.Info().
		Int64("requestID", requestID).
		Str("from", string(parent.Status)).
		Str("to", string(next)).
		Msg("Transfer request status recomputed")

	return next, true, nil
}
