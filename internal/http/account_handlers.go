package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"techanswers/internal/domain"
	"techanswers/internal/service"
)

const maxWebhookBody = 64 << 10

func (h *Handler) listSubscriptions(c *gin.Context) {
	subs, err := h.svc.Notifications.ListSubscriptions(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, subscriptionResponse{
			CategoryID:   s.CategoryID,
			CategoryName: s.CategoryName,
			CategorySlug: s.CategorySlug,
			CreatedAt:    s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": resp})
}

func (h *Handler) subscribe(c *gin.Context) {
	var req struct {
		CategoryID int64 `json:"categoryId" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Notifications.Subscribe(c.Request.Context(), actor(c).UserID, req.CategoryID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Abonnement enregistré"})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	id, ok := idParam(c, "categoryId")
	if !ok {
		return
	}
	if err := h.svc.Notifications.Unsubscribe(c.Request.Context(), actor(c).UserID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := h.svc.Notifications.List(c.Request.Context(), actor(c).UserID, unreadOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]notificationResponse, 0, len(items))
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": resp, "unread": unread})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), actor(c).UserID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	n, err := h.svc.Notifications.MarkAllRead(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.Delete(c.Request.Context(), actor(c).UserID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getNotificationSettings(c *gin.Context) {
	settings, err := h.svc.Notifications.GetSettings(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}

func (h *Handler) updateNotificationSettings(c *gin.Context) {
	var req notificationSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	settings, err := h.svc.Notifications.UpdateSettings(c.Request.Context(), domain.NotificationSettings{
		UserID:           actor(c).UserID,
		EmailNewArticles: req.EmailNewArticles,
		EmailComments:    req.EmailComments,
		EmailPayments:    req.EmailPayments,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}

func settingsResponse(s *domain.NotificationSettings) notificationSettingsRequest {
	return notificationSettingsRequest{
		EmailNewArticles: s.EmailNewArticles,
		EmailComments:    s.EmailComments,
		EmailPayments:    s.EmailPayments,
	}
}

func (h *Handler) checkout(c *gin.Context) {
	var req struct {
		ArticleID int64 `json:"articleId" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Payments.Checkout(c.Request.Context(), actor(c).UserID, req.ArticleID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": result.URL, "sessionId": result.SessionID})
}

func (h *Handler) listPayments(c *gin.Context) {
	payments, err := h.svc.Payments.ListByUser(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, paymentResponse{
			ID:           p.ID,
			ArticleID:    p.ArticleID,
			ArticleTitle: p.ArticleTitle,
			AmountCents:  p.AmountCents,
			Currency:     p.Currency,
			Status:       string(p.Status),
			CreatedAt:    p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": resp})
}

func (h *Handler) listInvoices(c *gin.Context) {
	invoices, err := h.svc.Invoices.ListByUser(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, invoiceResponse{
			ID:          inv.ID,
			Number:      inv.Number,
			PaymentID:   inv.PaymentID,
			AmountCents: inv.AmountCents,
			Currency:    inv.Currency,
			CreatedAt:   inv.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"invoices": resp})
}

func (h *Handler) invoicePDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Invoices.Document(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if doc.RedirectURL != "" {
		c.Redirect(http.StatusFound, doc.RedirectURL)
		return
	}
	writePDF(c, doc.Filename, doc.Data)
}

func writePDF(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}
	if err := h.svc.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) submitContact(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required,max=100"`
		Email   string `json:"email" binding:"required,email"`
		Subject string `json:"subject" binding:"required,max=200"`
		Message string `json:"message" binding:"required,max=5000"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.svc.Contacts.Submit(c.Request.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message envoyé"})
}

func (h *Handler) track(c *gin.Context) {
	var req struct {
		Path      string `json:"path" binding:"required"`
		ArticleID *int64 `json:"articleId" binding:"omitempty,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	in := service.TrackInput{
		Path:        req.Path,
		ArticleID:   req.ArticleID,
		Fingerprint: fingerprint(c),
	}
	if a := actor(c); a.Authenticated() {
		in.UserID = &a.UserID
	}
	if err := h.svc.Analytics.Track(c.Request.Context(), in); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
