package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid argument", InvalidArgument("invalid truck ID"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("invalid credentials"), http.StatusUnauthorized},
		{"not found", NotFound("truck not found"), http.StatusNotFound},
		{"method not allowed", MethodNotAllowed("Method Not Allowed"), http.StatusMethodNotAllowed},
		{"conflict", Conflict("username already exists"), http.StatusConflict},
		{"data access", DataAccess("failed to find trucks", errors.New("connection reset")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("delete trip: %w", NotFound("trip not found")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "truck not found", Message(fmt.Errorf("get truck: %w", NotFound("truck not found"))))
	assert.Equal(t, "internal server error", Message(DataAccess("failed to find trucks", errors.New("dial tcp: refused"))))
	assert.Equal(t, "internal server error", Message(errors.New("boom")))
}

func TestDataAccessKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := DataAccess("failed to delete trip", cause)

	assert.ErrorIs(t, err, ErrServer)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
}
