package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gator-market/apiserver/internal/auth"
	"github.com/gator-market/apiserver/internal/storage"
	"github.com/gator-market/apiserver/types"
)

// ErrValidation marks listing input that fails field validation.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when an authenticated actor is not entitled
// to mutate a listing. Distinct from unauthorized: the identity is known.
var ErrForbidden = errors.New("forbidden")

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Get(ctx context.Context, id int) (types.Listing, error)
	GetWithSeller(ctx context.Context, id int) (types.ListingWithSeller, error)
	ListActive(ctx context.Context) ([]types.ListingWithSeller, error)
	ListBySeller(ctx context.Context, sellerID int) ([]types.Listing, error)
	Create(ctx context.Context, listing types.Listing) (types.Listing, error)
	MarkSold(ctx context.Context, id int) (types.Listing, error)
	SetImage(ctx context.Context, id int, image string) (types.Listing, error)
	Delete(ctx context.Context, id int) error
}

// ListingService encapsulates listing use-cases: field validation,
// the owner-or-admin gate on mutations, and lifecycle events.
type ListingService struct {
	repo    ListingRepository
	events  *EventPublisher
	storage *storage.Storage
}

func NewListingService(repo ListingRepository, events *EventPublisher, store *storage.Storage) *ListingService {
	return &ListingService{repo: repo, events: events, storage: store}
}

func (s *ListingService) ListActive(ctx context.Context) ([]types.ListingWithSeller, error) {
	return s.repo.ListActive(ctx)
}

func (s *ListingService) Get(ctx context.Context, id int) (types.ListingWithSeller, error) {
	return s.repo.GetWithSeller(ctx, id)
}

// ListMine returns every listing owned by the actor, sold ones included.
func (s *ListingService) ListMine(ctx context.Context, actor types.User) ([]types.Listing, error) {
	return s.repo.ListBySeller(ctx, actor.ID)
}

// Create validates the listing fields, stamps the seller from the
// authenticated actor, and persists. The seller reference never comes
// from client input.
func (s *ListingService) Create(ctx context.Context, actor types.User, listing types.Listing) (types.ListingWithSeller, error) {
	if err := validateListing(listing); err != nil {
		return types.ListingWithSeller{}, err
	}

	listing.SellerID = actor.ID
	listing.IsActive = true

	created, err := s.repo.Create(ctx, listing)
	if err != nil {
		return types.ListingWithSeller{}, err
	}

	s.events.ListingCreated(ctx, created)

	return types.ListingWithSeller{
		Listing: created,
		Seller:  types.Seller{Email: actor.Email},
	}, nil
}

// Delete removes a listing if the actor is its seller or an admin.
func (s *ListingService) Delete(ctx context.Context, actor types.User, id int) error {
	listing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutate(actor, listing) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.events.ListingDeleted(ctx, listing)
	return nil
}

// MarkSold clears the active flag if the actor is entitled. Idempotent:
// marking a sold listing again succeeds and leaves it sold.
func (s *ListingService) MarkSold(ctx context.Context, actor types.User, id int) (types.ListingWithSeller, error) {
	listing, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.ListingWithSeller{}, err
	}
	if !auth.CanMutate(actor, listing) {
		return types.ListingWithSeller{}, ErrForbidden
	}

	wasActive := listing.IsActive
	updated, err := s.repo.MarkSold(ctx, id)
	if err != nil {
		return types.ListingWithSeller{}, err
	}
	if wasActive {
		s.events.ListingSold(ctx, updated)
	}

	return s.repo.GetWithSeller(ctx, updated.ID)
}

// AttachImage stores an uploaded image object and records its key on
// the listing. Requires the storage backend to be configured.
func (s *ListingService) AttachImage(ctx context.Context, actor types.User, id int, filename string, r io.Reader, size int64, contentType string) (types.ListingWithSeller, error) {
	if s.storage == nil {
		return types.ListingWithSeller{}, errors.New("object storage is not configured")
	}

	listing, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.ListingWithSeller{}, err
	}
	if !auth.CanMutate(actor, listing) {
		return types.ListingWithSeller{}, ErrForbidden
	}

	key := fmt.Sprintf("items/%d/%s", id, filename)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.ListingWithSeller{}, err
	}

	if _, err := s.repo.SetImage(ctx, id, key); err != nil {
		return types.ListingWithSeller{}, err
	}
	return s.repo.GetWithSeller(ctx, id)
}

func validateListing(listing types.Listing) error {
	if strings.TrimSpace(listing.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(listing.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if listing.Price <= 0 {
		return fmt.Errorf("%w: price must be a positive number", ErrValidation)
	}
	return nil
}
