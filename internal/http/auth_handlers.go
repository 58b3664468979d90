package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"techanswers/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Code length follows twofactor.codedigits, so only the shape is checked here.
type verifyRequest struct {
	UserID int64  `json:"userId" binding:"required,gt=0"`
	Code   string `json:"code" binding:"required,numeric,min=4,max=10"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

func (h *Handler) login(c *gin.Context) {
	h.doLogin(c, false)
}

func (h *Handler) adminLogin(c *gin.Context) {
	h.doLogin(c, true)
}

func (h *Handler) doLogin(c *gin.Context, adminOnly bool) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	device, _ := c.Cookie(deviceSessionCookie)
	result, err := h.svc.Auth.Login(c.Request.Context(), service.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		IP:            c.ClientIP(),
		Fingerprint:   fingerprint(c),
		DeviceSession: device,
		AdminOnly:     adminOnly,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeLogin(c, result, adminOnly)
}

func (h *Handler) verifyTwoFactor(c *gin.Context) {
	h.doVerify(c, false)
}

func (h *Handler) adminVerifyTwoFactor(c *gin.Context) {
	h.doVerify(c, true)
}

func (h *Handler) doVerify(c *gin.Context, adminOnly bool) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Auth.VerifyTwoFactor(c.Request.Context(), service.VerifyRequest{
		UserID:      req.UserID,
		Code:        req.Code,
		IP:          c.ClientIP(),
		Fingerprint: fingerprint(c),
		AdminOnly:   adminOnly,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeLogin(c, result, adminOnly)
}

func (h *Handler) writeLogin(c *gin.Context, result *service.LoginResult, admin bool) {
	if result.RequiresTwoFactor {
		c.JSON(http.StatusOK, gin.H{"requiresTwoFactor": true, "userId": result.User.ID})
		return
	}

	name := tokenCookie
	if admin {
		name = adminTokenCookie
	}
	h.setCookie(c, name, result.Token, time.Until(result.ExpiresAt))
	if result.DeviceSession != "" {
		h.setCookie(c, deviceSessionCookie, result.DeviceSession, time.Until(result.DeviceSessionExpires))
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      toUserResponse(result.User),
		"expiresAt": result.ExpiresAt,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if device, err := c.Cookie(deviceSessionCookie); err == nil && device != "" {
		if err := h.svc.Auth.Logout(c.Request.Context(), device); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.clearCookie(c, tokenCookie)
	h.clearCookie(c, adminTokenCookie)
	h.clearCookie(c, deviceSessionCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie"})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.svc.Users.GetByID(c.Request.Context(), actor(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Si un compte existe pour cet email, un lien de réinitialisation a été envoyé"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required,len=64,hexadecimal"`
		Password string `json:"password" binding:"required,min=8,max=72"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Users.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe réinitialisé"})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Users.ChangePassword(c.Request.Context(), actor(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe modifié"})
}

func (h *Handler) startTwoFactorSetup(c *gin.Context) {
	if err := h.svc.TwoFactor.StartSetup(c.Request.Context(), actor(c).UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Un code de vérification a été envoyé par email"})
}

func (h *Handler) confirmTwoFactorSetup(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required,numeric,min=4,max=10"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.TwoFactor.ConfirmSetup(c.Request.Context(), actor(c).UserID, req.Code); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Authentification à deux facteurs activée"})
}

func (h *Handler) disableTwoFactor(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.TwoFactor.Disable(c.Request.Context(), actor(c).UserID, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	h.clearCookie(c, deviceSessionCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Authentification à deux facteurs désactivée"})
}
