package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://www.sauda.kommune.no/innsyn/politiske-moter/"},
		{name: "http with query", url: "http://nyttinnsyn.sola.kommune.no/wfinnsyn.ashx?response=moteplan&"},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/", wantErr: true},
		{name: "no host", url: "https:///path", wantErr: true},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", maxURLLength), wantErr: true},
		{name: "unparseable", url: "https://exa mple.com/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL("url", tt.url)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr))
			assert.Equal(t, "url", vErr.Field)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "date", Message: "date is required"}
	assert.Equal(t, "validation error on field 'date': date is required", err.Error())
	assert.ErrorIs(t, err, ErrValidationFailed)
}
