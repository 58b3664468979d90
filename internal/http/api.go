// Package http exposes the services as a JSON API under /api.
package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"techanswers/internal/auth"
	"techanswers/internal/service"
)

const (
	tokenCookie         = "token"
	adminTokenCookie    = "admin-token"
	deviceSessionCookie = "device-session"
)

// Services groups the business services the handler routes to.
type Services struct {
	Users         service.UserService
	Auth          service.AuthService
	TwoFactor     service.TwoFactorService
	Guard         service.GuardService
	Articles      service.ArticleService
	Categories    service.CategoryService
	Comments      service.CommentService
	Notifications service.NotificationService
	Contacts      service.ContactService
	Payments      service.PaymentService
	Invoices      service.InvoiceService
	Analytics     service.AnalyticsService
	Admin         service.AdminService
}

type Options struct {
	Tokens        *auth.TokenManager
	CookieSecure  bool
	AllowedOrigin string
	Logger        *logrus.Logger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	svc    Services
	tokens *auth.TokenManager
	opts   Options
	logger *logrus.Logger
}

func NewHandler(svc Services, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	useJSONFieldNames()
	return &Handler{
		svc:    svc,
		tokens: opts.Tokens,
		opts:   opts,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.MaxMultipartMemory = service.MaxCoverImageSize + 1<<20
	router.Use(requestLogger(h.logger), corsMiddleware(h.opts.AllowedOrigin), h.identify())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/2fa/verify", h.verifyTwoFactor)
		authGroup.POST("/logout", h.logout)
		authGroup.POST("/forgot-password", h.forgotPassword)
		authGroup.POST("/reset-password", h.resetPassword)
		authGroup.GET("/me", requireAuth(), h.me)
		authGroup.PUT("/password", requireAuth(), h.changePassword)
		authGroup.POST("/2fa/setup", requireAuth(), h.startTwoFactorSetup)
		authGroup.POST("/2fa/enable", requireAuth(), h.confirmTwoFactorSetup)
		authGroup.POST("/2fa/disable", requireAuth(), h.disableTwoFactor)

		api.GET("/articles", h.listArticles)
		api.GET("/articles/:slug", h.getArticle)
		api.GET("/articles/:slug/comments", h.listComments)
		api.POST("/articles/:slug/comments", requireAuth(), h.createComment)
		api.GET("/articles/:slug/rating", h.getRating)
		api.PUT("/articles/:slug/rating", requireAuth(), h.rateArticle)
		api.DELETE("/comments/:id", requireAuth(), h.deleteComment)
		api.GET("/categories", h.listCategories)

		api.GET("/subscriptions", requireAuth(), h.listSubscriptions)
		api.POST("/subscriptions", requireAuth(), h.subscribe)
		api.DELETE("/subscriptions/:categoryId", requireAuth(), h.unsubscribe)

		notifications := api.Group("/notifications", requireAuth())
		notifications.GET("", h.listNotifications)
		notifications.GET("/settings", h.getNotificationSettings)
		notifications.PUT("/settings", h.updateNotificationSettings)
		notifications.POST("/read-all", h.markAllNotificationsRead)
		notifications.PATCH("/:id/read", h.markNotificationRead)
		notifications.DELETE("/:id", h.deleteNotification)

		api.POST("/payments/checkout", requireAuth(), h.checkout)
		api.GET("/payments", requireAuth(), h.listPayments)
		api.GET("/invoices", requireAuth(), h.listInvoices)
		api.GET("/invoices/:id/pdf", requireAuth(), h.invoicePDF)
		api.POST("/webhooks/stripe", h.stripeWebhook)

		api.POST("/contact", h.submitContact)
		api.POST("/analytics/track", h.track)

		api.POST("/admin/login", h.adminLogin)
		api.POST("/admin/login/verify", h.adminVerifyTwoFactor)

		admin := api.Group("/admin", requireAdmin())
		admin.GET("/stats", h.stats)
		admin.GET("/report.pdf", h.report)
		admin.GET("/users", h.listUsers)
		admin.PATCH("/users/:id", requireSuperAdmin(), h.updateUser)
		admin.GET("/security/blocked", h.listBlocked)
		admin.POST("/security/unblock", h.unblock)
		admin.GET("/articles", h.adminListArticles)
		admin.GET("/articles/:id", h.adminGetArticle)
		admin.POST("/articles", h.createArticle)
		admin.PUT("/articles/:id", h.updateArticle)
		admin.DELETE("/articles/:id", h.deleteArticle)
		admin.POST("/articles/:id/image", h.uploadArticleImage)
		admin.POST("/categories", h.createCategory)
		admin.PUT("/categories/:id", h.updateCategory)
		admin.DELETE("/categories/:id", h.deleteCategory)
		admin.GET("/contacts", h.listContacts)
		admin.PATCH("/contacts/:id/read", h.markContactRead)
		admin.DELETE("/contacts/:id", h.deleteContact)
	}
}

// idParam parses a positive integer path parameter, writing a 400 otherwise.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
