//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gator-market/apiserver/config"
	"github.com/gator-market/apiserver/internal/db"
	"github.com/gator-market/apiserver/internal/server"
	_ "github.com/lib/pq"
)

const serverPort = 18080

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestMarketplaceLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("seller_%d", suffix)
	email := fmt.Sprintf("seller_%d@ufl.edu", suffix)
	password := "SellerPass1!"

	if err := signup(baseURL, username, email, password); err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, err := login(baseURL, email, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	itemID, err := createItem(baseURL, token, fmt.Sprintf("E2E Lamp %d", suffix))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if itemID == 0 {
		t.Fatalf("expected item ID to be set")
	}

	active, err := listActive(baseURL)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if !containsItem(active, itemID) {
		t.Fatalf("expected item %d in active listings", itemID)
	}

	sold, err := markSold(baseURL, token, itemID)
	if err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if sold.IsActive {
		t.Fatalf("expected item %d to be inactive after mark-sold", itemID)
	}

	if err := deleteItem(baseURL, token, itemID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	active, err = listActive(baseURL)
	if err != nil {
		t.Fatalf("list active after delete: %v", err)
	}
	if containsItem(active, itemID) {
		t.Fatalf("expected item %d to be gone", itemID)
	}
}

func TestAdminOverride(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	password := "AdminPass1!"

	sellerEmail := fmt.Sprintf("owner_%d@ufl.edu", suffix)
	if err := signup(baseURL, fmt.Sprintf("owner_%d", suffix), sellerEmail, password); err != nil {
		t.Fatalf("signup seller: %v", err)
	}
	sellerToken, err := login(baseURL, sellerEmail, password)
	if err != nil {
		t.Fatalf("login seller: %v", err)
	}

	adminUsername := fmt.Sprintf("boss_%d", suffix)
	adminEmail := fmt.Sprintf("boss_%d@ufl.edu", suffix)
	if err := signup(baseURL, adminUsername, adminEmail, password); err != nil {
		t.Fatalf("signup admin: %v", err)
	}
	if err := promoteToAdmin(adminUsername); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	adminToken, err := login(baseURL, adminEmail, password)
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}

	itemID, err := createItem(baseURL, sellerToken, fmt.Sprintf("Admin Target %d", suffix))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := deleteItem(baseURL, adminToken, itemID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

type listingResponse struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	IsActive bool    `json:"is_active"`
	Seller   struct {
		Email string `json:"email"`
	} `json:"seller"`
}

func signup(baseURL, username, email, password string) error {
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	resp, err := http.Post(baseURL+"/signup", "application/json", strings.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}
	return nil
}

func login(baseURL, identifier, password string) (string, error) {
	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", password)
	resp, err := http.PostForm(baseURL+"/login", form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return parsed.AccessToken, nil
}

func createItem(baseURL, token, title string) (int, error) {
	body := fmt.Sprintf(`{"title":%q,"price":42.50,"category":"living","description":"e2e item"}`, title)
	req, err := http.NewRequest(http.MethodPost, baseURL+"/items/", strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}
	var created listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func listActive(baseURL string) ([]listingResponse, error) {
	resp, err := http.Get(baseURL + "/items/active")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var items []listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

func markSold(baseURL, token string, id int) (listingResponse, error) {
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/items/%d/mark-sold", baseURL, id), nil)
	if err != nil {
		return listingResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return listingResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return listingResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}
	var updated listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return listingResponse{}, err
	}
	return updated, nil
}

func deleteItem(baseURL, token string, id int) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/items/%d", baseURL, id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}
	return nil
}

func containsItem(items []listingResponse, id int) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func testConfig() (config.Config, error) {
	os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	os.Setenv("JWT_SECRET", "e2e-test-secret")
	os.Setenv("JWT_ALGORITHM", "HS256")
	os.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	os.Setenv("AUTH_EMAIL_DOMAIN", "ufl.edu")
	return config.LoadConfig()
}

func waitForPostgres(ctx context.Context) error {
	cfg, err := testConfig()
	if err != nil {
		return err
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := sql.Open("postgres", db.DSN(cfg))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = conn.PingContext(pingCtx)
			cancel()
			_ = conn.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return errors.New("timed out waiting for postgres")
}

func runMigrations(root string) error {
	cfg, err := testConfig()
	if err != nil {
		return err
	}
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")
	migrator, err := migrate.New(migrationsURL, db.DSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	cfg, err := testConfig()
	if err != nil {
		return nil, err
	}
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server stopped: %v\n", err)
		}
	}()
	return srv, nil
}

func waitForHealth(ctx context.Context, healthURL string) error {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return errors.New("timed out waiting for server health")
}

func promoteToAdmin(username string) error {
	cfg, err := testConfig()
	if err != nil {
		return err
	}
	conn, err := sql.Open("postgres", db.DSN(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Exec(`UPDATE users SET is_admin = TRUE WHERE username = $1`, username)
	return err
}
