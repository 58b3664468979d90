package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerFieldNames sync.Once

// useJSONFieldNames makes validation errors report the json name of a field.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	return true
}

// bindingMessage turns the first validation failure into a French message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Requête invalide"
	}
	fe := verrs[0]
	field := fe.Field()
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Le champ %s est requis", field)
	case "email":
		return "Adresse email invalide"
	case "min":
		if text {
			return fmt.Sprintf("Le champ %s doit contenir au moins %s caractères", field, fe.Param())
		}
		return fmt.Sprintf("Le champ %s doit être au moins %s", field, fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("Le champ %s doit contenir au plus %s caractères", field, fe.Param())
		}
		return fmt.Sprintf("Le champ %s doit être au plus %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("Le champ %s doit contenir %s caractères", field, fe.Param())
	case "numeric", "hexadecimal":
		return fmt.Sprintf("Le champ %s a un format invalide", field)
	}
	return fmt.Sprintf("Le champ %s est invalide", field)
}
