package service

import (
	"context"
	"sync"

	"nestbook/internal/bookings/repository"
	"nestbook/internal/listings"
	"nestbook/pkg/clock"
	"nestbook/pkg/config"
	apperrors "nestbook/pkg/errors"
	"nestbook/pkg/locale"
	"nestbook/pkg/model"
)

// QueryService serves the read-only booking lists. Every list returns one page plus
// the total number of matches.
type QueryService interface {
	ListUpcomingForRoom(ctx context.Context, roomID string, page model.Page) ([]*model.Booking, int64, error)
	ListUpcomingForExperience(ctx context.Context, experienceID string, page model.Page) ([]*model.Booking, int64, error)
	ListForUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, int64, error)
}

type queryService struct {
	repo     repository.BookingRepository
	listings listings.Directory
	clock    clock.Clock
	cfg      *config.Config
}

func NewQueryService(repo repository.BookingRepository, directory listings.Directory, clk clock.Clock, cfg *config.Config) QueryService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &queryService{
		repo:     repo,
		listings: directory,
		clock:    clk,
		cfg:      cfg,
	}
}

// ListUpcomingForRoom lists active stays starting after the caller's today.
func (s *queryService) ListUpcomingForRoom(ctx context.Context, roomID string, page model.Page) ([]*model.Booking, int64, error) {
	if err := lookupListing(ctx, s.listings, model.KindRoom, roomID); err != nil {
		return nil, 0, err
	}

	today := model.DateOf(s.clock.Now(), locale.FromContext(ctx, s.cfg.Location))
	return s.countAndFind(ctx, "room", roomID,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountUpcomingStays(ctx, roomID, today)
		},
		func(ctx context.Context, page model.Page) ([]*model.Booking, error) {
			return s.repo.FindUpcomingStays(ctx, roomID, today, page)
		},
		page,
	)
}

func (s *queryService) ListUpcomingForExperience(ctx context.Context, experienceID string, page model.Page) ([]*model.Booking, int64, error) {
	if err := lookupListing(ctx, s.listings, model.KindExperience, experienceID); err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	return s.countAndFind(ctx, "experience", experienceID,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountUpcomingVisits(ctx, experienceID, now)
		},
		func(ctx context.Context, page model.Page) ([]*model.Booking, error) {
			return s.repo.FindUpcomingVisits(ctx, experienceID, now, page)
		},
		page,
	)
}

// ListForUser includes canceled and orphaned bookings.
func (s *queryService) ListForUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	return s.countAndFind(ctx, "user", userID,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByUser(ctx, userID)
		},
		func(ctx context.Context, page model.Page) ([]*model.Booking, error) {
			return s.repo.FindByUser(ctx, userID, page)
		},
		page,
	)
}

func (s *queryService) countAndFind(
	ctx context.Context,
	scope, scopeID string,
	count func(ctx context.Context) (int64, error),
	find func(ctx context.Context, page model.Page) ([]*model.Booking, error),
	page model.Page,
) ([]*model.Booking, int64, error) {
	page.Limit = s.cfg.NormalizePageSize(page.Limit)
	if page.Offset < 0 {
		page.Offset = 0
	}

	var total int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", scope, scopeID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = find(ctx, page)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", scope, scopeID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, total, nil
}
