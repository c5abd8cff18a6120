package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/dto"
)

type sampleRequest struct {
	SessionID string `json:"session_id" binding:"required,max=8"`
	Source    string `form:"source" binding:"max=3"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	t.Run("required uses json name", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&sampleRequest{})
		require.Error(t, err)

		details := ValidationDetails(err)
		require.Len(t, details, 1)
		assert.Equal(t, "session_id", details[0].Field)
		assert.Equal(t, "This field is required", details[0].Message)
		assert.Equal(t, dto.ErrCodeValidationRequired, ValidationCode(err))
	})

	t.Run("max on string falls back to form name", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&sampleRequest{SessionID: "s", Source: "toolong"})
		require.Error(t, err)

		details := ValidationDetails(err)
		require.Len(t, details, 1)
		assert.Equal(t, "source", details[0].Field)
		assert.Equal(t, "Must be at most 3 characters", details[0].Message)
		assert.Equal(t, dto.ErrCodeValidationRange, ValidationCode(err))
	})

	t.Run("non validator error", func(t *testing.T) {
		err := errors.New("boom")
		assert.Nil(t, ValidationDetails(err))
		assert.Equal(t, dto.ErrCodeValidation, ValidationCode(err))
	})
}
