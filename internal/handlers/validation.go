package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/response"
	appValidator "github.com/dicri-gt/dicri-backend/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewValidation("El cuerpo de la solicitud no es un JSON válido"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewValidation(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "solicitud inválida"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "solicitud inválida"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s es obligatorio", field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s debe ser un correo válido", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s debe tener al menos %s caracteres", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s debe tener como máximo %s caracteres", field, failure.Param))
			case "strongpassword":
				messages = append(messages, fmt.Sprintf("%s debe incluir mayúsculas, minúsculas, dígitos y símbolos", field))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s no cumple la regla %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s no cumple la regla %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "solicitud inválida"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "campo"
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseUintParam(c *gin.Context, key string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || value == 0 {
		response.Error(c, appErrors.NewValidation(fmt.Sprintf("%s debe ser un identificador numérico", key)))
		return 0, false
	}
	return uint(value), true
}
