package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"techanswers/internal/service"
)

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Admin.Stats(c.Request.Context(), queryInt(c, "days", 30))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatsResponse(stats))
}

func (h *Handler) report(c *gin.Context) {
	days := queryInt(c, "days", 30)
	data, err := h.svc.Admin.Report(c.Request.Context(), days)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writePDF(c, fmt.Sprintf("rapport-%dj.pdf", days), data)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, err := h.svc.Admin.ListUsers(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		h.writeError(c, err)
		return
	}
	users := make([]userResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, toUserResponse(&page.Users[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": page.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsAdmin *bool `json:"isAdmin" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Admin.SetAdmin(c.Request.Context(), actor(c), id, *req.IsAdmin)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h *Handler) listBlocked(c *gin.Context) {
	rows, err := h.svc.Guard.ListBlocked(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]blockedResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, blockedResponse{
			ID:           r.ID,
			IP:           r.IP,
			Fingerprint:  r.Fingerprint,
			Attempts:     r.Attempts,
			BlockedUntil: r.BlockedUntil,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"blocked": resp})
}

func (h *Handler) unblock(c *gin.Context) {
	var req struct {
		ID          int64  `json:"id" binding:"gte=0"`
		IP          string `json:"ip" binding:"omitempty,ip"`
		Fingerprint string `json:"fingerprint" binding:"omitempty,len=64,hexadecimal"`
	}
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.svc.Guard.Unblock(c.Request.Context(), service.UnblockRequest{ID: req.ID, IP: req.IP, Fingerprint: req.Fingerprint})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unblocked": n})
}

func (h *Handler) listContacts(c *gin.Context) {
	contacts, err := h.svc.Contacts.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]contactResponse, 0, len(contacts))
	for _, m := range contacts {
		resp = append(resp, contactResponse{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Subject:   m.Subject,
			Message:   m.Message,
			Read:      m.Read,
			CreatedAt: m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"contacts": resp})
}

func (h *Handler) markContactRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Contacts.MarkRead(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteContact(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Contacts.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
