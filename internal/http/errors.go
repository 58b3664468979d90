package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"techanswers/internal/service"
)

var defaultMessages = map[int]string{
	http.StatusBadRequest:          "Requête invalide",
	http.StatusUnauthorized:        "Authentification requise",
	http.StatusForbidden:           "Accès refusé",
	http.StatusNotFound:            "Ressource introuvable",
	http.StatusConflict:            "Conflit avec l'état actuel",
	http.StatusServiceUnavailable:  "Service indisponible",
	http.StatusInternalServerError: "Erreur interne du serveur",
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrBlocked):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidCode),
		isUnauthenticated(err):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to its status and French message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	message := defaultMessages[status]

	var (
		blocked *service.BlockedError
		verr    *service.ValidationError
		serr    *service.Error
	)
	switch {
	case errors.As(err, &blocked):
		wait := time.Until(blocked.Until)
		minutes := int(math.Ceil(wait.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		message = fmt.Sprintf("Trop de tentatives de connexion. Réessayez dans %d minute(s).", minutes)
	case errors.As(err, &verr):
		message = verr.Message
	case errors.As(err, &serr) && status != http.StatusInternalServerError:
		message = serr.Message
	case errors.Is(err, service.ErrInvalidCredentials):
		message = "Email ou mot de passe incorrect"
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Errorf("request failed: %v", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
