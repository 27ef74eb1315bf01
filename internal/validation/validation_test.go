package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promptInput struct {
	Prompt string `validate:"notblank,max=10,maxwords=3"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      promptInput
		wantErr string
	}{
		{name: "ok", in: promptInput{Prompt: "2+2?"}},
		{name: "blank", in: promptInput{Prompt: "   "}, wantErr: "prompt: must not be empty"},
		{name: "too long", in: promptInput{Prompt: strings.Repeat("x", 11)}, wantErr: "prompt: exceeds the maximum of 10 characters"},
		{name: "too many words", in: promptInput{Prompt: "a b c d"}, wantErr: "prompt: exceeds the maximum of 3 words (got 4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestMaxCountsCharactersNotBytes(t *testing.T) {
	// ten two-byte characters fit a ten-character limit
	err := Struct(promptInput{Prompt: strings.Repeat("я", 10)})
	assert.NoError(t, err)
}

func TestIsValidationWrapped(t *testing.T) {
	err := fmt.Errorf("saving: %w", New("text", "must not be empty"))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("other")))
}
