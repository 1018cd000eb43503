package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := Input("service score is NaN")
		assert.Equal(t, "[INPUT_ERROR] service score is NaN", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("invalid syntax")
		err := Parsing("row 3 column harga", cause)
		assert.Equal(t, "[PARSING_ERROR] row 3 column harga: invalid syntax", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestIsTypeSeesThroughWrapping(t *testing.T) {
	inner := NotFound("run", "abc")
	wrapped := fmt.Errorf("history show: %w", inner)

	assert.True(t, IsType(wrapped, TypeNotFound))
	assert.False(t, IsType(wrapped, TypeStorage))
	assert.False(t, IsType(stderrors.New("plain"), TypeNotFound))
}

func TestWithContext(t *testing.T) {
	err := Input("bad record").WithContext("row", 4).WithContext("id", "R-7")
	assert.Equal(t, 4, err.Context["row"])
	assert.Equal(t, "R-7", err.Context["id"])
	assert.True(t, err.IsOfType(TypeInput))
	assert.False(t, err.IsOfType(TypeParsing))
}
