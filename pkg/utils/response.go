package utils

import (
	"net/http"

	"fleet-manager/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	MsgFetched     = "Data fetched successfully"
	MsgCreated     = "Record created successfully"
	MsgUpdated     = "Record updated successfully"
	MsgDeleted     = "Record deleted successfully"
	MsgInvalidBody = "Invalid data provided in the request body."
	MsgNotFound    = "Not Found"
	MsgNotAllowed  = "Method Not Allowed"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	c.AbortWithStatusJSON(statusCode, response)
}

// HandleError classifies err and writes the matching status and message.
// Server errors are logged with their cause and reported generically.
func HandleError(c *gin.Context, err error) {
	status := errs.Status(err)
	message := errs.Message(err)

	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("request failed")

		c.AbortWithStatusJSON(status, APIResponse{
			Success: false,
			Message: message,
			Error:   "internal server error",
		})
		return
	}

	c.AbortWithStatusJSON(status, APIResponse{
		Success: false,
		Message: message,
	})
}

// ValidationErrorResponse sends a validation error response
func ValidationErrorResponse(c *gin.Context, err error) {
	var errors []string

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			errors = append(errors, getValidationErrorMessage(fieldError))
		}
	} else {
		errors = append(errors, err.Error())
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Message: "Validation failed",
		Error:   errors,
	})
}

// getValidationErrorMessage returns a user-friendly validation error message
func getValidationErrorMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fieldError.Param()
	case "max":
		return field + " must be at most " + fieldError.Param()
	case "gte":
		return field + " must be greater than or equal to " + fieldError.Param()
	case "oneof":
		return field + " must be one of: " + fieldError.Param()
	case "mongodb":
		return field + " must be a valid id"
	case "required_without_all":
		return "at least one field must be provided"
	default:
		return field + " is invalid"
	}
}
