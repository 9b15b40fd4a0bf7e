package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// ResponseHelpers provides methods for REST-native responses
type ResponseHelpers struct{}

// Success sends the resource directly (no wrapper)
func (h *ResponseHelpers) Success(c *gin.Context, resource interface{}) {
	c.JSON(200, resource)
}

// Created sends a 201 created response with the created resource
func (h *ResponseHelpers) Created(c *gin.Context, resource interface{}) {
	c.JSON(201, resource)
}

// NoContent sends a 204 no content response
func (h *ResponseHelpers) NoContent(c *gin.Context) {
	c.Status(204)
}

func (h *ResponseHelpers) ValidationError(c *gin.Context, field, message string) {
	problem := models.NewValidationProblem(field, message)
	h.setRequestIDHeader(c)
	c.JSON(400, problem)
}

// BusinessError sends a business logic error (409 or 422)
func (h *ResponseHelpers) BusinessError(c *gin.Context, status int, title, detail string, code models.ErrorCode) {
	problem := models.NewBusinessLogicProblem(status, title, detail, code)
	h.setRequestIDHeader(c)
	c.JSON(status, problem)
}

// NotFound sends a 404 not found response
func (h *ResponseHelpers) NotFound(c *gin.Context, resource string) {
	problem := models.NewNotFoundProblem(resource)
	h.setRequestIDHeader(c)
	c.JSON(404, problem)
}

// InternalError sends a 500 internal server error response
func (h *ResponseHelpers) InternalError(c *gin.Context, detail string) {
	problem := models.NewInternalErrorProblem()
	h.setRequestIDHeader(c)

	// Log the error for debugging but don't expose internals
	log.Error().
		Str("request_id", getRequestID(c)).
		Str("detail", detail).
		Msg("Internal server error")

	c.JSON(500, problem)
}

// Error maps a typed service error to its problem response
func (h *ResponseHelpers) Error(c *gin.Context, err error) {
	h.setRequestIDHeader(c)

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(400, models.NewValidationProblem(validationErr.Field, validationErr.Message))
		return
	}

	var notFoundErr *models.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(404, models.NewNotFoundProblem(notFoundErr.Resource))
		return
	}

	var businessErr *models.BusinessError
	if errors.As(err, &businessErr) {
		status, title := businessStatus(businessErr.Code)
		if status == 500 {
			h.InternalError(c, businessErr.Message)
			return
		}
		c.JSON(status, models.NewBusinessLogicProblem(status, title, businessErr.Message, businessErr.Code))
		return
	}

	h.InternalError(c, err.Error())
}

// businessStatus maps a rejection code to HTTP status and title.
// Conflicts with existing records are 409; rule violations are 422.
func businessStatus(code models.ErrorCode) (int, string) {
	switch code {
	case models.ErrorCodeDuplicateHold:
		return 409, "Duplicate Hold"
	case models.ErrorCodeDuplicateRes:
		return 409, "Duplicate Reservation"
	case models.ErrorCodeJobAlreadyRunning:
		return 409, "Job Already Running"
	case models.ErrorCodeItemAvailable:
		return 422, "Item Available"
	case models.ErrorCodeItemCheckedOut:
		return 422, "Item Checked Out"
	case models.ErrorCodeActiveLoan:
		return 422, "Active Loan"
	case models.ErrorCodeAlreadyFinished:
		return 422, "Already Finished"
	case models.ErrorCodeInvalidStatus:
		return 422, "Invalid Status"
	default:
		return 500, "Internal Server Error"
	}
}

// Helper functions

func (h *ResponseHelpers) setRequestIDHeader(c *gin.Context) {
	if requestID := getRequestID(c); requestID != "" {
		c.Header("X-Request-ID", requestID)
	}
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	return ""
}

// BindError turns a gin binding failure into a validation problem
func (h *ResponseHelpers) BindError(c *gin.Context, err error) {
	h.setRequestIDHeader(c)

	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		c.JSON(400, models.NewValidationProblem(strings.ToLower(first.Field()), validationMessage(first)))
		return
	}

	c.JSON(400, models.NewValidationProblem("request", "Invalid request format"))
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too small"
	case "max":
		return "Value is too large"
	default:
		return "Invalid value"
	}
}

// Create a global instance for easy access
var Response = &ResponseHelpers{}
