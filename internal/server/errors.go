// Package server provides the HTTP REST API for the data autopilot.
package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/data-autopilot/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
// Structured faults map by category; plain errors count as runtime faults.
func HTTPStatus(err error) int {
	switch types.CategoryOf(err) {
	case types.FaultLoad:
		return http.StatusBadRequest
	case types.FaultDetectionAmbiguity, types.FaultTransformation,
		types.FaultSyntax, types.FaultRuntime:
		return http.StatusUnprocessableEntity
	case types.FaultResourceExceeded:
		return http.StatusRequestTimeout
	case types.FaultProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// faultResponse writes a structured fault as a JSON error body.
func (s *Server) faultResponse(w http.ResponseWriter, err error) {
	fault := types.AsFault(err, types.FaultRuntime)
	s.jsonResponse(w, HTTPStatus(fault), map[string]string{
		"error":    fault.Message,
		"category": string(fault.Category),
	})
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		msg := "validation failed:"
		for _, fieldErr := range validationErrors {
			msg += " " + fieldErr.Field() + " (" + fieldErr.Tag() + ")"
		}
		return msg
	}
	return err.Error()
}
