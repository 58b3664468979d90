package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techanswers/internal/auth"
	"techanswers/internal/mail"
	"techanswers/internal/payment"
	"techanswers/internal/repository/sqlite"
	"techanswers/internal/service"
)

type memoryQueue struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (q *memoryQueue) Enqueue(msg mail.Message) error {
	q.mu.Lock()
	q.sent = append(q.sent, msg)
	q.mu.Unlock()
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (q *memoryQueue) lastCode(t *testing.T) string {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.sent)
	code := codePattern.FindString(q.sent[len(q.sent)-1].Body)
	require.NotEmpty(t, code)
	return code
}

type rejectingGateway struct{}

func (rejectingGateway) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	return &payment.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (rejectingGateway) ParseWebhook([]byte, string) (*payment.WebhookEvent, error) {
	return nil, payment.ErrInvalidSignature
}

type testServer struct {
	router *gin.Engine
	queue  *memoryQueue
	svc    Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repos := sqlite.NewRepositories(db)
	require.NoError(t, repos.Init(context.Background()))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	queue := &memoryQueue{}
	tokens := auth.NewTokenManager("http-test-secret-http-test-secret", time.Hour)

	users := service.NewUserService(repos.Users, repos.Notifications, repos.TwoFactor, queue, logger, service.UserConfig{PublicURL: "https://techanswers.test"})
	guard := service.NewGuardService(repos.Bruteforce, service.GuardConfig{MaxAttempts: 5, Lockout: 15 * time.Minute}, logger)
	twoFactor := service.NewTwoFactorService(repos.Users, repos.TwoFactor, queue, logger, service.TwoFactorConfig{})
	analytics := service.NewAnalyticsService(repos.Analytics)
	notifications := service.NewNotificationService(repos.Notifications, repos.Subscriptions, repos.Users, repos.Categories, queue, logger, "https://techanswers.test")
	articles := service.NewArticleService(repos.Articles, repos.Categories, repos.Users, notifications, analytics, nil, logger)
	invoices := service.NewInvoiceService(repos.Invoices, repos.Payments, repos.Users, nil, logger)

	svc := Services{
		Users:         users,
		Auth:          service.NewAuthService(users, guard, twoFactor, tokens, logger),
		TwoFactor:     twoFactor,
		Guard:         guard,
		Articles:      articles,
		Categories:    service.NewCategoryService(repos.Categories),
		Comments:      service.NewCommentService(repos.Comments, repos.Ratings, articles, notifications),
		Notifications: notifications,
		Contacts:      service.NewContactService(repos.Contacts, queue, logger, "admin@techanswers.test"),
		Payments:      service.NewPaymentService(rejectingGateway{}, repos.Payments, repos.Articles, repos.Users, invoices, notifications, logger, service.PaymentConfig{PublicURL: "https://techanswers.test"}),
		Invoices:      invoices,
		Analytics:     analytics,
		Admin:         service.NewAdminService(repos.Users, repos.Articles, repos.Comments, repos.Payments, repos.Analytics, "eur"),
	}

	router := gin.New()
	NewHandler(svc, Options{Tokens: tokens, Logger: logger}).RegisterRoutes(router)
	return &testServer{router: router, queue: queue, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "api-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, name string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"email":    name + "@example.fr",
		"username": name,
		"password": "motdepasse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, name string, extra ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": name + "@example.fr", "password": "motdepasse"}, extra...)
}

func cookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	rec := s.login(t, "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := cookie(t, rec, tokenCookie)
	assert.True(t, token.HttpOnly)
	assert.NotContains(t, decode(t, rec), "token")

	me := s.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, me.Code)
	user := decode(t, me)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "bob")

	for i := 1; i < 5; i++ {
		rec := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.fr", "password": "mauvais-mdp"})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.fr", "password": "mauvais-mdp"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Correct credentials do not bypass an active block.
	rec = s.login(t, "bob")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, decode(t, rec)["error"], "Réessayez dans")
}

func TestTwoFactorFlowTrustsDevice(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "carol")
	token := cookie(t, s.login(t, "carol"), tokenCookie)

	rec := s.do(t, http.MethodPost, "/api/auth/2fa/setup", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/auth/2fa/enable", gin.H{"code": s.queue.lastCode(t)}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.login(t, "carol")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["requiresTwoFactor"])
	userID := body["userId"]

	rec = s.do(t, http.MethodPost, "/api/auth/2fa/verify", gin.H{"userId": userID, "code": "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/2fa/verify", gin.H{"userId": userID, "code": s.queue.lastCode(t)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie(t, rec, tokenCookie)
	device := cookie(t, rec, deviceSessionCookie)

	// The trusted device skips the second factor.
	rec = s.login(t, "carol", device)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["requiresTwoFactor"])
	cookie(t, rec, tokenCookie)
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "dave")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", nil).Code)

	token := cookie(t, s.login(t, "dave"), tokenCookie)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/stats", nil, token).Code)

	bad := &http.Cookie{Name: tokenCookie, Value: "not-a-jwt"}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/notifications", nil, bad).Code)
}

func TestAdminLoginRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "erin")
	rec := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "erin@example.fr", "password": "motdepasse"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := s.svc.Users.CreateAdmin(context.Background(), service.RegisterInput{
		Email: "root@example.fr", Username: "root", Password: "motdepasse",
	}, true)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "root@example.fr", "password": "motdepasse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	admin := cookie(t, rec, adminTokenCookie)

	rec = s.do(t, http.MethodGet, "/api/admin/stats?days=7", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["users"])

	rec = s.do(t, http.MethodGet, "/api/admin/report.pdf", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestPremiumArticleIsLocked(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	author, err := s.svc.Users.CreateAdmin(ctx, service.RegisterInput{Email: "auteur@example.fr", Username: "auteur", Password: "motdepasse"}, false)
	require.NoError(t, err)
	category, err := s.svc.Categories.Create(ctx, service.CategoryInput{Name: "Réseaux"})
	require.NoError(t, err)
	article, err := s.svc.Articles.Create(ctx, author.ID, service.ArticleInput{
		Title:      "Le routage BGP expliqué",
		Excerpt:    "Un aperçu",
		Content:    "Le contenu complet",
		CategoryID: category.ID,
		IsPremium:  true,
		PriceCents: 499,
		Published:  true,
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/articles/"+article.Slug, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["article"].(map[string]any)
	assert.Equal(t, true, got["locked"])
	assert.Equal(t, "Un aperçu", got["content"])

	rec = s.do(t, http.MethodGet, "/api/articles?category="+category.Slug, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=forged")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactValidation(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/contact", gin.H{"name": "Zoé", "email": "pas-un-email", "subject": "Bonjour", "message": "Salut"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/contact", gin.H{"name": "Zoé", "email": "zoe@example.fr", "subject": "Bonjour", "message": "Une question sur Go"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRequestBindingMessages(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "pas-un-email", "username": "zoe", "password": "motdepasse"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Adresse email invalide", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "zoe@example.fr", "username": "zoe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Le champ password est requis", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "zoe@example.fr", "username": "zoe", "password": "court"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Le champ password doit contenir au moins 8 caractères", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": "inconnu", "password": "motdepasse"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
