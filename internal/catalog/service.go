package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timebankhq/timebank-backend/pkg/db/models"
	"github.com/timebankhq/timebank-backend/pkg/enums"
	pkgerrors "github.com/timebankhq/timebank-backend/pkg/errors"
	pkgpagination "github.com/timebankhq/timebank-backend/pkg/pagination"
)

// Service exposes the provider-facing catalog operations.
type Service interface {
	CreateListing(ctx context.Context, input CreateListingInput) (*ListingView, error)
	GetListing(ctx context.Context, id uuid.UUID) (*ListingView, error)
	ListListings(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
}

// NewService wires the catalog service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateListing(ctx context.Context, input CreateListingInput) (*ListingView, error) {
	if input.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "provider identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing name required")
	}
	if strings.TrimSpace(input.ServiceType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service type required")
	}
	if strings.TrimSpace(input.Province) == "" || strings.TrimSpace(input.Area) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "province and area required")
	}
	if !input.HoursRequired.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hours required must be positive")
	}

	listing := &models.ServiceListing{
		ProviderID:    input.ProviderID,
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		ServiceType:   strings.TrimSpace(input.ServiceType),
		SubCategory:   input.SubCategory,
		Province:      strings.TrimSpace(input.Province),
		Area:          strings.TrimSpace(input.Area),
		HoursRequired: input.HoursRequired,
		Status:        enums.ListingStatusAvailable,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	view := toListingView(*listing)
	return &view, nil
}

func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*ListingView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	view := toListingView(*listing)
	return &view, nil
}

func (s *service) ListListings(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != "" && !enums.ListingStatus(params.Status).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing status filter")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := ListQuery{
		ServiceType: strings.TrimSpace(params.ServiceType),
		Province:    strings.TrimSpace(params.Province),
		Area:        strings.TrimSpace(params.Area),
		Status:      params.Status,
		ProviderID:  params.ProviderID,
		Limit:       pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListingView, len(rows))
	for i, row := range rows {
		items[i] = toListingView(row)
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
