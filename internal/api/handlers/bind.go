package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"fleet-manager/internal/errs"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// normalizer is implemented by requests that clean their fields before
// validation.
type normalizer interface {
	Normalize()
}

// bindJSON decodes a non-empty JSON object into dest, rejecting unknown
// fields, and validates it. On failure it writes the 400 response and returns
// false.
func bindJSON(c *gin.Context, v *validator.Validate, dest interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.MsgInvalidBody, err)
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.MsgInvalidBody, nil)
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.MsgInvalidBody, err)
		return false
	}

	if n, ok := dest.(normalizer); ok {
		n.Normalize()
	}
	if err := v.Struct(dest); err != nil {
		utils.ValidationErrorResponse(c, err)
		return false
	}
	return true
}

// requireID returns the record id from the path or the ?id= alias.
func requireID(c *gin.Context, label string) (string, bool) {
	id := c.Param("id")
	if id == "" {
		utils.HandleError(c, errs.InvalidArgument(label+" ID is required"))
		return "", false
	}
	return id, true
}
