package service

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/rating"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// RatingService answers staff rating queries.
type RatingService struct {
	ratings *rating.Ledger
	gw      gateway.Gateway
	cfg     config.TicketConfig
}

// NewRatingService constructs the service.
func NewRatingService(ratings *rating.Ledger, gw gateway.Gateway, cfg config.TicketConfig) *RatingService {
	return &RatingService{ratings: ratings, gw: gw, cfg: cfg}
}

// Rating returns the actor's own claim counter. Staff only.
func (s *RatingService) Rating(ctx context.Context, actorID string) (int, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return 0, err
	}
	return s.ratings.Get(actorID), nil
}

// TopRatings returns up to n staff entries ranked by claim count. Staff
// only.
func (s *RatingService) TopRatings(ctx context.Context, actorID string, n int) ([]rating.Entry, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	return s.ratings.TopN(n), nil
}

func (s *RatingService) requireStaff(ctx context.Context, actorID string) error {
	isStaff, err := s.gw.HasRole(ctx, actorID, s.cfg.StaffRoleID)
	if err != nil {
		return util.NewInternalError(err)
	}
	if !isStaff {
		return util.NewForbidden("staff role required")
	}
	return nil
}
