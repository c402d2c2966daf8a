package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/gator-market/apiserver/internal/auth"
	"github.com/gator-market/apiserver/internal/services"
	"github.com/gator-market/apiserver/internal/store"
	"github.com/gator-market/apiserver/types"
)

const (
	testSecret = "test-secret-key-for-testing-only"
	testDomain = "ufl.edu"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByUsernameOrEmail(_ context.Context, identifier string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeListingRepo struct {
	mu       sync.Mutex
	nextID   int
	listings map[int]types.Listing
	users    *fakeUserRepo
}

func newFakeListingRepo(users *fakeUserRepo) *fakeListingRepo {
	return &fakeListingRepo{nextID: 1, listings: map[int]types.Listing{}, users: users}
}

func (f *fakeListingRepo) Get(_ context.Context, id int) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	return listing, nil
}

func (f *fakeListingRepo) GetWithSeller(ctx context.Context, id int) (types.ListingWithSeller, error) {
	listing, err := f.Get(ctx, id)
	if err != nil {
		return types.ListingWithSeller{}, err
	}
	return f.withSeller(ctx, listing)
}

func (f *fakeListingRepo) ListActive(ctx context.Context) ([]types.ListingWithSeller, error) {
	f.mu.Lock()
	active := make([]types.Listing, 0)
	for _, listing := range f.listings {
		if listing.IsActive {
			active = append(active, listing)
		}
	}
	f.mu.Unlock()

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	items := make([]types.ListingWithSeller, 0, len(active))
	for _, listing := range active {
		item, err := f.withSeller(ctx, listing)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeListingRepo) ListBySeller(_ context.Context, sellerID int) ([]types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mine := make([]types.Listing, 0)
	for _, listing := range f.listings {
		if listing.SellerID == sellerID {
			mine = append(mine, listing)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].ID < mine[j].ID })
	return mine, nil
}

func (f *fakeListingRepo) Create(_ context.Context, listing types.Listing) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing.ID = f.nextID
	f.nextID++
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	f.listings[listing.ID] = listing
	return listing, nil
}

func (f *fakeListingRepo) MarkSold(_ context.Context, id int) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	listing.IsActive = false
	listing.UpdatedAt = time.Now()
	f.listings[id] = listing
	return listing, nil
}

func (f *fakeListingRepo) SetImage(_ context.Context, id int, image string) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	listing.Image = image
	listing.UpdatedAt = time.Now()
	f.listings[id] = listing
	return listing, nil
}

func (f *fakeListingRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.listings, id)
	return nil
}

func (f *fakeListingRepo) withSeller(ctx context.Context, listing types.Listing) (types.ListingWithSeller, error) {
	seller, err := f.users.GetByID(ctx, listing.SellerID)
	if err != nil {
		return types.ListingWithSeller{}, err
	}
	return types.ListingWithSeller{
		Listing: listing,
		Seller:  types.Seller{Email: seller.Email},
	}, nil
}

type testEnv struct {
	router   *chi.Mux
	users    *fakeUserRepo
	listings *fakeListingRepo
	tokens   *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	listings := newFakeListingRepo(users)

	tokens, err := auth.NewTokenService(testSecret, "HS256", 30*time.Minute)
	require.NoError(t, err)

	userService := services.NewUserService(users)
	listingService := services.NewListingService(listings, nil, nil)

	resolver := auth.NewResolver(tokens, users)
	authHandler := NewAuthHandler(userService, tokens, resolver, testDomain)
	itemHandler := NewItemHandler(listingService, false)

	router := chi.NewRouter()
	AuthRouter(router, authHandler)
	router.Route("/items", func(r chi.Router) {
		ItemRouter(r, itemHandler, authHandler.RequireAuth)
	})

	return &testEnv{
		router:   router,
		users:    users,
		listings: listings,
		tokens:   tokens,
	}
}

// addUser stores an account directly, bypassing the HTTP flow.
func (e *testEnv) addUser(t *testing.T, username, email, password string, isAdmin bool) types.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := e.users.Create(context.Background(), types.User{
		Username:     username,
		Email:        email,
		IsAdmin:      isAdmin,
		PasswordHash: hashed,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) addListing(t *testing.T, sellerID int, title string, price float64, active bool) types.Listing {
	t.Helper()
	listing, err := e.listings.Create(context.Background(), types.Listing{
		SellerID: sellerID,
		Title:    title,
		Price:    price,
		Category: "school",
		IsActive: active,
	})
	require.NoError(t, err)
	return listing
}

func (e *testEnv) tokenFor(t *testing.T, username string) string {
	t.Helper()
	token, err := e.tokens.Issue(username)
	require.NoError(t, err)
	return token
}

// do runs a request through the router and returns the recorder.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
