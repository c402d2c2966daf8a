package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gator-market/apiserver/types"
)

// ListingRepository handles persistence for listings.
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `id, seller_id, title, description, price, category, image, is_active, created_at, updated_at`

func scanListing(row *sql.Row) (types.Listing, error) {
	var listing types.Listing
	err := row.Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Title,
		&listing.Description,
		&listing.Price,
		&listing.Category,
		&listing.Image,
		&listing.IsActive,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Listing{}, ErrNotFound
		}
		return types.Listing{}, err
	}
	return listing, nil
}

func (r *ListingRepository) Get(ctx context.Context, id int) (types.Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM items
		WHERE id = $1`
	return scanListing(r.db.QueryRowContext(ctx, query, id))
}

func (r *ListingRepository) GetByTitle(ctx context.Context, title string) (types.Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM items
		WHERE title = $1`
	return scanListing(r.db.QueryRowContext(ctx, query, title))
}

// GetWithSeller loads a listing together with its materialized seller
// projection via an explicit join.
func (r *ListingRepository) GetWithSeller(ctx context.Context, id int) (types.ListingWithSeller, error) {
	const query = `
		SELECT i.id, i.seller_id, i.title, i.description, i.price, i.category, i.image, i.is_active, i.created_at, i.updated_at,
			u.email
		FROM items i
		JOIN users u ON u.id = i.seller_id
		WHERE i.id = $1`
	var item types.ListingWithSeller
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.SellerID,
		&item.Title,
		&item.Description,
		&item.Price,
		&item.Category,
		&item.Image,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Seller.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ListingWithSeller{}, ErrNotFound
		}
		return types.ListingWithSeller{}, err
	}
	return item, nil
}

// ListActive returns all active listings with their seller projections.
func (r *ListingRepository) ListActive(ctx context.Context) ([]types.ListingWithSeller, error) {
	const query = `
		SELECT i.id, i.seller_id, i.title, i.description, i.price, i.category, i.image, i.is_active, i.created_at, i.updated_at,
			u.email
		FROM items i
		JOIN users u ON u.id = i.seller_id
		WHERE i.is_active = TRUE
		ORDER BY i.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.ListingWithSeller, 0)
	for rows.Next() {
		var item types.ListingWithSeller
		if err := rows.Scan(
			&item.ID,
			&item.SellerID,
			&item.Title,
			&item.Description,
			&item.Price,
			&item.Category,
			&item.Image,
			&item.IsActive,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Seller.Email,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID int) ([]types.Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM items
		WHERE seller_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]types.Listing, 0)
	for rows.Next() {
		var listing types.Listing
		if err := rows.Scan(
			&listing.ID,
			&listing.SellerID,
			&listing.Title,
			&listing.Description,
			&listing.Price,
			&listing.Category,
			&listing.Image,
			&listing.IsActive,
			&listing.CreatedAt,
			&listing.UpdatedAt,
		); err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *ListingRepository) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	const query = `
		INSERT INTO items (seller_id, title, description, price, category, image, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		listing.SellerID,
		listing.Title,
		listing.Description,
		listing.Price,
		listing.Category,
		listing.Image,
		listing.IsActive,
		listing.CreatedAt,
		listing.UpdatedAt,
	).Scan(&listing.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Listing{}, ErrConflict
		}
		return types.Listing{}, err
	}
	return listing, nil
}

// MarkSold clears the active flag and returns the updated row. The
// update is idempotent: marking an already sold listing leaves it sold.
func (r *ListingRepository) MarkSold(ctx context.Context, id int) (types.Listing, error) {
	const query = `
		UPDATE items
		SET is_active = FALSE,
			updated_at = $1
		WHERE id = $2
		RETURNING ` + listingColumns
	return scanListing(r.db.QueryRowContext(ctx, query, time.Now(), id))
}

// SetImage stores the object reference for the listing's image.
func (r *ListingRepository) SetImage(ctx context.Context, id int, image string) (types.Listing, error) {
	const query = `
		UPDATE items
		SET image = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + listingColumns
	return scanListing(r.db.QueryRowContext(ctx, query, image, time.Now(), id))
}

func (r *ListingRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM items WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
