package types

import "time"

// Listing represents an item offered for sale on the marketplace.
type Listing struct {
	// ID is the unique identifier of the listing.
	ID int `json:"id" db:"id"`

	// SellerID references the owning account. It is always set
	// server-side from the authenticated identity.
	SellerID int `json:"seller_id" db:"seller_id"`

	// Title is the short display name of the item.
	Title string `json:"title" db:"title"`

	// Description is optional free-form detail.
	Description string `json:"description" db:"description"`

	// Price is the asking price. Always > 0 at creation.
	Price float64 `json:"price" db:"price"`

	// Category is the marketplace category the item is listed under.
	Category string `json:"category" db:"category"`

	// Image is an optional image reference (object key or URL).
	Image string `json:"image,omitempty" db:"image"`

	// IsActive is true until the item is sold or removed.
	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Seller is the materialized seller projection embedded in listing
// responses. The store produces it with an explicit join; nothing in the
// request path traverses a lazy relationship.
type Seller struct {
	Email string `json:"email"`
}

// ListingWithSeller is a listing plus its seller projection.
type ListingWithSeller struct {
	Listing
	Seller Seller `json:"seller"`
}
