// Package seed populates the database with bootstrap accounts and
// listings. Running it repeatedly creates nothing new: users are keyed
// on unique email, items on their unique seed title.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gator-market/apiserver/internal/auth"
	"github.com/gator-market/apiserver/internal/store"
	"github.com/gator-market/apiserver/types"
)

// UserStore is the subset of user persistence the seeder needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// ListingStore is the subset of listing persistence the seeder needs.
type ListingStore interface {
	GetByTitle(ctx context.Context, title string) (types.Listing, error)
	Create(ctx context.Context, listing types.Listing) (types.Listing, error)
}

// SeedUser describes one bootstrap account.
type SeedUser struct {
	Email    string
	Username string
	Password string
	IsAdmin  bool
}

// Users is the fixed bootstrap account set: two admins, three regular
// accounts.
var Users = []SeedUser{
	{Email: "admin1@ufl.edu", Username: "admin1", Password: "Passw0rd1!", IsAdmin: true},
	{Email: "admin2@ufl.edu", Username: "admin2", Password: "Passw0rd2!", IsAdmin: true},
	{Email: "user1@ufl.edu", Username: "user1", Password: "UserPass1!", IsAdmin: false},
	{Email: "user2@ufl.edu", Username: "user2", Password: "UserPass2!", IsAdmin: false},
	{Email: "seed_owner@ufl.edu", Username: "seed_owner", Password: "SeedPass1!", IsAdmin: false},
}

// Categories lists the marketplace categories, 20 seed items each.
var Categories = []string{"school", "apparel", "living", "services", "tickets"}

const itemsPerCategory = 20

type itemTemplate struct {
	title    string
	minPrice float64
	maxPrice float64
}

var itemTemplates = map[string][]itemTemplate{
	"school": {
		{"Intro to CS Textbook", 45, 120},
		{"Calculus Textbook", 50, 100},
		{"Graphing Calculator", 60, 100},
		{"Biology Lab Manual", 25, 60},
		{"Statistics Textbook", 45, 90},
	},
	"apparel": {
		{"UF T-Shirt", 15, 25},
		{"Gators Hoodie", 30, 50},
		{"UF Baseball Cap", 12, 20},
		{"Spirit Jersey", 35, 55},
		{"Backpack", 35, 65},
	},
	"living": {
		{"Mini Fridge", 60, 120},
		{"Desk Lamp", 15, 35},
		{"Study Desk", 50, 100},
		{"Office Chair", 45, 90},
		{"Bookshelf", 35, 70},
	},
	"services": {
		{"Tutoring - Calculus", 20, 40},
		{"Essay Editing", 15, 30},
		{"Programming Help", 30, 50},
		{"Resume Review", 20, 35},
		{"Test Prep Session", 30, 55},
	},
	"tickets": {
		{"Football Game Tickets", 40, 80},
		{"Basketball Game Tickets", 25, 50},
		{"Concert Tickets", 30, 70},
		{"Theater Show Tickets", 20, 45},
		{"Music Festival Pass", 50, 80},
	},
}

var categoryImages = map[string]string{
	"school":   "https://images.unsplash.com/photo-1456513080510-7bf3a84b82f8?w=400",
	"apparel":  "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400",
	"living":   "https://images.unsplash.com/photo-1555041469-a586c61ea9bc?w=400",
	"services": "https://images.unsplash.com/photo-1556761175-4b46a572b786?w=400",
	"tickets":  "https://images.unsplash.com/photo-1594608661623-aa0bd8a69762?w=400",
}

// Summary reports what a seeding run did.
type Summary struct {
	UsersCreated  int
	UsersExisting int
	ItemsCreated  int
	ItemsExisting int
}

// Seeder populates bootstrap data through the store layer.
type Seeder struct {
	users    UserStore
	listings ListingStore
}

func New(users UserStore, listings ListingStore) *Seeder {
	return &Seeder{users: users, listings: listings}
}

// Run seeds users then items. Safe to call repeatedly.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	byEmail, err := s.seedUsers(ctx, &summary)
	if err != nil {
		return summary, err
	}
	if err := s.seedItems(ctx, byEmail, &summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context, summary *Summary) (map[string]types.User, error) {
	byEmail := make(map[string]types.User, len(Users))

	for _, seedUser := range Users {
		existing, err := s.users.GetByEmail(ctx, seedUser.Email)
		if err == nil {
			byEmail[seedUser.Email] = existing
			summary.UsersExisting++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		hashed, err := auth.HashPassword(seedUser.Password)
		if err != nil {
			return nil, err
		}
		created, err := s.users.Create(ctx, types.User{
			Username:     seedUser.Username,
			Email:        seedUser.Email,
			IsAdmin:      seedUser.IsAdmin,
			PasswordHash: hashed,
		})
		if err != nil {
			return nil, err
		}
		byEmail[seedUser.Email] = created
		summary.UsersCreated++
	}

	return byEmail, nil
}

func (s *Seeder) seedItems(ctx context.Context, byEmail map[string]types.User, summary *Summary) error {
	itemNumber := 1

	for _, category := range Categories {
		templates := itemTemplates[category]
		image := categoryImages[category]

		for i := 0; i < itemsPerCategory; i++ {
			seller := byEmail[Users[i%len(Users)].Email]
			template := templates[i%len(templates)]

			title := fmt.Sprintf("%s - Seed #%d", template.title, itemNumber)
			itemNumber++

			_, err := s.listings.GetByTitle(ctx, title)
			if err == nil {
				summary.ItemsExisting++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			fraction := float64(i%len(templates)) / math.Max(float64(len(templates)-1), 1)
			price := math.Round((template.minPrice+(template.maxPrice-template.minPrice)*fraction)*100) / 100

			_, err = s.listings.Create(ctx, types.Listing{
				SellerID:    seller.ID,
				Title:       title,
				Description: fmt.Sprintf("%s for the %s category. High quality and great condition!", template.title, category),
				Price:       price,
				Category:    category,
				Image:       image,
				IsActive:    true,
			})
			if err != nil {
				return err
			}
			summary.ItemsCreated++
		}
	}

	return nil
}
