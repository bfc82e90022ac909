package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "None"},
		{"robots", fmt.Errorf("%w: https://x", ErrRobotsDisallowed), "Policy_Robots"},
		{"client http", fmt.Errorf("%w: status 404", ErrClientHTTPError), "HTTP_4xx"},
		{"retry wrapping server", fmt.Errorf("%w: %w", ErrRetryFailed, fmt.Errorf("%w: status 503", ErrServerHTTPError)), "RetryFailed_HTTPServer"},
		{"unsupported format", fmt.Errorf("%w: .bin", ErrUnsupportedFormat), "Content_Unsupported"},
		{"empty text", ErrEmptyText, "Content_Empty"},
		{"parsing", fmt.Errorf("%w: bad xref", ErrParsing), "Content_Parsing"},
		{"context cancelled", context.Canceled, "System_ContextCanceled"},
		{"deadline", context.DeadlineExceeded, "System_ContextDeadlineExceeded"},
		{"unknown", errors.New("mystery"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(tt.err))
		})
	}
}
