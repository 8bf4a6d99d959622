package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/database"
	"github.com/farca/storefront/metrics"
	"github.com/farca/storefront/model"
	"github.com/farca/storefront/provider/local"
	"github.com/farca/storefront/repository"
	"github.com/farca/storefront/storage"
)

type testDBConfig struct{}

func (testDBConfig) GetDriver() string { return "sqlite" }
func (testDBConfig) GetDSN() string    { return ":memory:" }

type testEnv struct {
	app      *fiber.App
	db       *bun.DB
	provider *local.Provider
	repos    repository.Manager
	store    *storage.MemoryStore
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	orig := local.BcryptCost
	local.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { local.BcryptCost = orig })

	db, err := database.Open(testDBConfig{})
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(context.Background(), db))
	t.Cleanup(func() { _ = db.Close() })

	provider := local.NewProvider(local.NewCredentialsRepository(db), local.Config{
		SigningKey: []byte("controller-test-signing-key"),
	})

	repos := repository.NewManager(db)
	logger := silentLogger{}
	store := storage.NewMemoryStore()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sink := collector.ActivitySink()

	provisioner := auth.NewProvisioner(provider, repos.Profiles()).
		WithLogger(logger).
		WithActivitySink(sink)

	stateMachine := auth.NewProfileStateMachine(repos.Profiles(),
		auth.WithStateMachineActivitySink(sink),
		auth.WithStateMachineLogger(logger),
	)

	app := fiber.New()
	Register(app, Controllers{
		Auth: &AuthController{
			Provider:    provider,
			Profiles:    repos.Profiles(),
			Provisioner: provisioner,
			Logger:      logger,
			Sink:        sink,
		},
		Products:  &ProductsController{Products: repos.Products(), Store: store, Logger: logger},
		Orders:    &OrdersController{Orders: repos.Orders(), Products: repos.Products(), Logger: logger, Collector: collector},
		Documents: &DocumentsController{Documents: repos.Documents(), Store: store, Logger: logger},
		Clients:   &ClientsController{Profiles: repos.Profiles(), StateMachine: stateMachine, Logger: logger},
		Provider:  provider,
		Profiles:  repos.Profiles(),
		Logger:    logger,
		Registry:  registry,
		Collector: collector,
	})

	return &testEnv{
		app:      app,
		db:       db,
		provider: provider,
		repos:    repos,
		store:    store,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	_ = res.Body.Close()
	return out
}

// registerClient walks the real registration path
func (e *testEnv) registerClient(t *testing.T, email, password, name string) *model.Profile {
	t.Helper()

	res := e.request(t, http.MethodPost, "/auth/sign-up", "", map[string]any{
		"email":            email,
		"password":         password,
		"confirm_password": password,
		"full_name":        name,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	body := decodeBody[registrationResponse](t, res)
	require.NotNil(t, body.Profile)
	return body.Profile
}

func (e *testEnv) signIn(t *testing.T, email, password string) string {
	t.Helper()

	res := e.request(t, http.MethodPost, "/auth/sign-in", "", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	body := decodeBody[sessionResponse](t, res)
	require.NotEmpty(t, body.Token)
	return body.Token
}

// makeAdmin flips the role directly; there is no self-service admin signup.
func (e *testEnv) makeAdmin(t *testing.T, profile *model.Profile) {
	t.Helper()
	_, err := e.db.NewUpdate().
		Model((*model.Profile)(nil)).
		Set("role = ?", model.RoleAdmin).
		Where("id = ?", profile.ID).
		Exec(context.Background())
	require.NoError(t, err)
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	profile := e.registerClient(t, "admin@example.com", "admin-password-1", "Back Office")
	e.makeAdmin(t, profile)
	return e.signIn(t, "admin@example.com", "admin-password-1")
}

func TestSignUpAndSignInFlow(t *testing.T) {
	env := setupEnv(t)

	profile := env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	assert.Equal(t, model.RoleClient, profile.Role)
	assert.Equal(t, model.StatusActive, profile.Status)

	token := env.signIn(t, "client@example.com", "long-password-1")

	res := env.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	body := decodeBody[sessionResponse](t, res)
	assert.Equal(t, profile.ID, body.Profile.ID)
}

func TestSignUpDuplicate(t *testing.T) {
	env := setupEnv(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")

	res := env.request(t, http.MethodPost, "/auth/sign-up", "", map[string]any{
		"email":            "client@example.com",
		"password":         "long-password-1",
		"confirm_password": "long-password-1",
		"full_name":        "Maria Again",
	})
	require.Equal(t, fiber.StatusConflict, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "ALREADY_EXISTS", body.Error.TextCode)
}

func TestSignUpValidation(t *testing.T) {
	env := setupEnv(t)

	res := env.request(t, http.MethodPost, "/auth/sign-up", "", map[string]any{
		"email":            "not-an-email",
		"password":         "short",
		"confirm_password": "different",
		"full_name":        "",
	})
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "VALIDATION", body.Error.TextCode)
	assert.Contains(t, body.Error.Fields, "email")
	assert.Contains(t, body.Error.Fields, "password")
}

func TestSignInWrongPassword(t *testing.T) {
	env := setupEnv(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")

	res := env.request(t, http.MethodPost, "/auth/sign-in", "", map[string]any{
		"email":    "client@example.com",
		"password": "wrong-password-1",
	})
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "CREDENTIAL_REJECTED", body.Error.TextCode)
}

func TestBlockedClientIsDeniedWithValidCredentials(t *testing.T) {
	env := setupEnv(t)
	profile := env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")

	_, err := env.repos.Profiles().UpdateStatus(context.Background(), profile.ID, model.StatusBlocked)
	require.NoError(t, err)

	res := env.request(t, http.MethodPost, "/auth/sign-in", "", map[string]any{
		"email":    "client@example.com",
		"password": "long-password-1",
	})
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "ACCOUNT_BLOCKED", body.Error.TextCode)
}

func TestBlockKillsLiveSession(t *testing.T) {
	env := setupEnv(t)
	profile := env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	token := env.signIn(t, "client@example.com", "long-password-1")

	// session works before the block
	res := env.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	_, err := env.repos.Profiles().UpdateStatus(context.Background(), profile.ID, model.StatusBlocked)
	require.NoError(t, err)

	// the guard denies the existing token and revokes the provider session
	res = env.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	// even after an unblock the old token stays dead
	_, err = env.repos.Profiles().UpdateStatus(context.Background(), profile.ID, model.StatusActive)
	require.NoError(t, err)
	res = env.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestSignOutRevokesSession(t *testing.T) {
	env := setupEnv(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	token := env.signIn(t, "client@example.com", "long-password-1")

	res := env.request(t, http.MethodPost, "/auth/sign-out", token, nil)
	require.Equal(t, fiber.StatusNoContent, res.StatusCode)

	res = env.request(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := setupEnv(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	token := env.signIn(t, "client@example.com", "long-password-1")

	res := env.request(t, http.MethodGet, "/admin/clients", token, nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	res = env.request(t, http.MethodGet, "/admin/clients", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestAdminClientLifecycle(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	client := env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")

	res := env.request(t, http.MethodGet, "/admin/clients", admin, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	listed := decodeBody[[]*model.Profile](t, res)
	assert.Len(t, listed, 2)

	res = env.request(t, http.MethodPut, fmt.Sprintf("/admin/clients/%s/status", client.ID), admin, map[string]any{
		"status": "blocked",
		"reason": "late payments",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	updated := decodeBody[*model.Profile](t, res)
	assert.Equal(t, model.StatusBlocked, updated.Status)

	// soft delete keeps the row
	res = env.request(t, http.MethodDelete, fmt.Sprintf("/admin/clients/%s", client.ID), admin, nil)
	require.Equal(t, fiber.StatusNoContent, res.StatusCode)

	res = env.request(t, http.MethodGet, fmt.Sprintf("/admin/clients/%s", client.ID), admin, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	deleted := decodeBody[*model.Profile](t, res)
	assert.Equal(t, model.StatusDeleted, deleted.Status)

	// deleted is terminal for admins
	res = env.request(t, http.MethodPut, fmt.Sprintf("/admin/clients/%s/status", client.ID), admin, map[string]any{
		"status": "active",
	})
	require.Equal(t, fiber.StatusConflict, res.StatusCode)
}

func TestDeletedClientCanReRegister(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	client := env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")

	res := env.request(t, http.MethodDelete, fmt.Sprintf("/admin/clients/%s", client.ID), admin, nil)
	require.Equal(t, fiber.StatusNoContent, res.StatusCode)

	// same credentials, fresh registration reactivates the profile
	res = env.request(t, http.MethodPost, "/auth/sign-up", "", map[string]any{
		"email":            "client@example.com",
		"password":         "long-password-1",
		"confirm_password": "long-password-1",
		"full_name":        "Maria Bianchi",
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	body := decodeBody[registrationResponse](t, res)
	assert.Equal(t, auth.ProvisionReactivated, body.Outcome)
	assert.Equal(t, client.ID, body.Profile.ID)
	assert.Equal(t, "Maria Bianchi", body.Profile.FullName)
	assert.Equal(t, model.StatusActive, body.Profile.Status)
}

func TestProductCatalog(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)

	res := env.request(t, http.MethodPost, "/admin/products", admin, map[string]any{
		"name":           "Olive Oil 1L",
		"description":    "Cold pressed",
		"price":          12.5,
		"stock_quantity": 40,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	created := decodeBody[*model.Product](t, res)
	assert.Equal(t, model.DefaultCurrency, created.Currency)
	assert.True(t, created.IsActive)

	// public listing requires no session
	res = env.request(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	public := decodeBody[[]*model.Product](t, res)
	require.Len(t, public, 1)

	res = env.request(t, http.MethodPost, fmt.Sprintf("/admin/products/%s/deactivate", created.ID), admin, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res = env.request(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	public = decodeBody[[]*model.Product](t, res)
	assert.Len(t, public, 0)
}

func TestProductValidation(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)

	res := env.request(t, http.MethodPost, "/admin/products", admin, map[string]any{
		"name":  "",
		"price": 0,
	})
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Contains(t, body.Error.Fields, "name")
	assert.Contains(t, body.Error.Fields, "price")
}

func TestProductImageUpload(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)

	res := env.request(t, http.MethodPost, "/admin/products", admin, map[string]any{
		"name":  "Olive Oil 1L",
		"price": 12.5,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	created := decodeBody[*model.Product](t, res)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "bottle.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/products/%s/image", created.ID), &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)

	raw, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, raw.StatusCode)

	updated := decodeBody[*model.Product](t, raw)
	assert.Contains(t, updated.ImageURL, "memory://objects/products/")
}

func TestOrderPlacementAndFulfillment(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	client := env.signIn(t, "client@example.com", "long-password-1")

	res := env.request(t, http.MethodPost, "/admin/products", admin, map[string]any{
		"name":  "Olive Oil 1L",
		"price": 12.5,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	product := decodeBody[*model.Product](t, res)

	res = env.request(t, http.MethodPost, "/client/orders", client, map[string]any{
		"items": []map[string]any{
			{"product_id": product.ID.String(), "quantity": 2},
		},
		"delivery_address": "Via Roma 1, Torino",
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	order := decodeBody[*model.Order](t, res)
	assert.Equal(t, 25.0, order.TotalAmount)
	assert.Equal(t, model.OrderPending, order.OrderStatus)

	res = env.request(t, http.MethodGet, "/client/orders", client, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	mine := decodeBody[[]*model.Order](t, res)
	require.Len(t, mine, 1)

	res = env.request(t, http.MethodGet, fmt.Sprintf("/client/orders/%s", order.ID), client, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	// admins move the order along
	res = env.request(t, http.MethodPut, fmt.Sprintf("/admin/orders/%s/status", order.ID), admin, map[string]any{
		"status": "confirmed",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	// skipping steps is refused
	res = env.request(t, http.MethodPut, fmt.Sprintf("/admin/orders/%s/status", order.ID), admin, map[string]any{
		"status": "delivered",
	})
	require.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	res = env.request(t, http.MethodPut, fmt.Sprintf("/admin/orders/%s/payment", order.ID), admin, map[string]any{
		"status": "paid",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	paid := decodeBody[*model.Order](t, res)
	assert.Equal(t, model.PaymentPaid, paid.PaymentStatus)
}

func TestOrderOwnershipIsOpaque(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	env.registerClient(t, "one@example.com", "long-password-1", "Client One")
	one := env.signIn(t, "one@example.com", "long-password-1")
	env.registerClient(t, "two@example.com", "long-password-2", "Client Two")
	two := env.signIn(t, "two@example.com", "long-password-2")

	res := env.request(t, http.MethodPost, "/admin/products", admin, map[string]any{
		"name":  "Olive Oil 1L",
		"price": 12.5,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	product := decodeBody[*model.Product](t, res)

	res = env.request(t, http.MethodPost, "/client/orders", one, map[string]any{
		"items": []map[string]any{{"product_id": product.ID.String(), "quantity": 1}},
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)
	order := decodeBody[*model.Order](t, res)

	res = env.request(t, http.MethodGet, fmt.Sprintf("/client/orders/%s", order.ID), two, nil)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestDocumentSharing(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	client := env.signIn(t, "client@example.com", "long-password-1")

	upload := func(title string, public bool) *model.Document {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("title", title))
		require.NoError(t, mw.WriteField("is_public", fmt.Sprintf("%t", public)))
		fw, err := mw.CreateFormFile("file", "list.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("pdf-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/admin/documents", &buf)
		req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)

		res, err := env.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, res.StatusCode)
		return decodeBody[*model.Document](t, res)
	}

	visible := upload("Price list", true)
	upload("Internal margins", false)

	res := env.request(t, http.MethodGet, "/client/documents", client, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	docs := decodeBody[[]*model.Document](t, res)
	require.Len(t, docs, 1)
	assert.Equal(t, visible.ID, docs[0].ID)
	assert.Equal(t, "application/pdf", docs[0].FileType)

	res = env.request(t, http.MethodGet, "/admin/documents", admin, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	all := decodeBody[[]*model.Document](t, res)
	assert.Len(t, all, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupEnv(t)
	env.registerClient(t, "client@example.com", "long-password-1", "Maria Rossi")
	env.signIn(t, "client@example.com", "long-password-1")

	res := env.request(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storefront_signin_success_total 1")
	assert.Contains(t, string(data), "storefront_profiles_provisioned_total")
}
