package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"techanswers/internal/auth"
	"techanswers/internal/domain"
	"techanswers/internal/mail"
	"techanswers/internal/payment"
	"techanswers/internal/repository/sqlite"
	"techanswers/internal/storage"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (q *fakeQueue) Enqueue(msg mail.Message) error {
	q.mu.Lock()
	q.sent = append(q.sent, msg)
	q.mu.Unlock()
	return nil
}

func (q *fakeQueue) to(addr string) []mail.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []mail.Message
	for _, m := range q.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// lastCode extracts the code from the newest mail sent to addr.
func (q *fakeQueue) lastCode(t *testing.T, addr string) string {
	msgs := q.to(addr)
	require.NotEmpty(t, msgs)
	code := sixDigits.FindString(msgs[len(msgs)-1].Body)
	require.NotEmpty(t, code)
	return code
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	fail     error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

// ParseWebhook accepts the literal signature "valid" and a JSON encoded WebhookEvent.
func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var event payment.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range s.objects {
		if bytes.HasPrefix([]byte(k), []byte(prefix)) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.objects {
		if bytes.HasPrefix([]byte(k), []byte(prefix)) {
			delete(s.objects, k)
		}
	}
	return nil
}

func (s *fakeStorage) GetObjectURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

type fixture struct {
	repos   *sqlite.Repositories
	clock   *testClock
	queue   *fakeQueue
	gateway *fakeGateway
	store   *fakeStorage
	tokens  *auth.TokenManager

	users         UserService
	guard         GuardService
	twoFactor     TwoFactorService
	auth          AuthService
	categories    CategoryService
	articles      ArticleService
	comments      CommentService
	notifications NotificationService
	contacts      ContactService
	invoices      InvoiceService
	payments      PaymentService
	admin         AdminService
	retention     RetentionService
	analytics     AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := sqlite.NewRepositories(db)
	require.NoError(t, repos.Init(context.Background()))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		repos:   repos,
		clock:   &testClock{t: time.Now().UTC()},
		queue:   &fakeQueue{},
		gateway: &fakeGateway{},
		store:   newFakeStorage(),
		tokens:  auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour),
	}

	users := NewUserService(repos.Users, repos.Notifications, repos.TwoFactor, f.queue, logger, UserConfig{PublicURL: "https://techanswers.test"})
	users.(*userService).now = f.clock.Now
	guard := NewGuardService(repos.Bruteforce, GuardConfig{MaxAttempts: 5, Lockout: 15 * time.Minute}, logger)
	guard.(*guardService).now = f.clock.Now
	twoFactor := NewTwoFactorService(repos.Users, repos.TwoFactor, f.queue, logger, TwoFactorConfig{})
	twoFactor.(*twoFactorService).now = f.clock.Now
	analytics := NewAnalyticsService(repos.Analytics)
	analytics.(*analyticsService).now = f.clock.Now
	notifications := NewNotificationService(repos.Notifications, repos.Subscriptions, repos.Users, repos.Categories, f.queue, logger, "https://techanswers.test")
	articles := NewArticleService(repos.Articles, repos.Categories, repos.Users, notifications, analytics, f.store, logger)
	articles.(*articleService).now = f.clock.Now
	invoices := NewInvoiceService(repos.Invoices, repos.Payments, repos.Users, f.store, logger)
	invoices.(*invoiceService).now = f.clock.Now
	admin := NewAdminService(repos.Users, repos.Articles, repos.Comments, repos.Payments, repos.Analytics, "eur")
	admin.(*adminService).now = f.clock.Now
	retention := NewRetentionService(repos.Notifications, repos.TwoFactor, repos.Bruteforce, repos.Users, 14*24*time.Hour)
	retention.(*retentionService).now = f.clock.Now

	f.users = users
	f.guard = guard
	f.twoFactor = twoFactor
	f.analytics = analytics
	f.notifications = notifications
	f.articles = articles
	f.invoices = invoices
	f.admin = admin
	f.retention = retention
	f.auth = NewAuthService(users, guard, twoFactor, f.tokens, logger)
	f.categories = NewCategoryService(repos.Categories)
	f.comments = NewCommentService(repos.Comments, repos.Ratings, articles, notifications)
	f.contacts = NewContactService(repos.Contacts, f.queue, logger, "admin@techanswers.test")
	f.payments = NewPaymentService(f.gateway, repos.Payments, repos.Articles, repos.Users, invoices, notifications, logger, PaymentConfig{Currency: "EUR", PublicURL: "https://techanswers.test"})
	return f
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{
		Email:    name + "@example.fr",
		Username: name,
		Password: "motdepasse",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) adminUser(t *testing.T, name string, super bool) *domain.User {
	t.Helper()
	u, err := f.users.CreateAdmin(context.Background(), RegisterInput{
		Email:    name + "@example.fr",
		Username: name,
		Password: "motdepasse",
	}, super)
	require.NoError(t, err)
	return u
}

func (f *fixture) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) article(t *testing.T, authorID int64, categoryID int64, title string, premium bool) *domain.Article {
	t.Helper()
	in := ArticleInput{
		Title:      title,
		Excerpt:    "Résumé de " + title,
		Content:    "Contenu complet de " + title,
		CategoryID: categoryID,
		Published:  true,
	}
	if premium {
		in.IsPremium = true
		in.PriceCents = 499
	}
	a, err := f.articles.Create(context.Background(), authorID, in)
	require.NoError(t, err)
	return a
}
