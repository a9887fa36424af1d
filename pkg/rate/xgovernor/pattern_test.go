package xgovernor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPattern(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"FirstSegment", "/tweets/123/replies", "/tweets"},
		{"SingleSegment", "/users", "/users"},
		{"NoLeadingSlash", "tweets", "/tweets"},
		{"QueryIgnored", "/search?q=golang&count=10", "/search"},
		{"FragmentIgnored", "/graphql#op", "/graphql"},
		{"Root", "/", DefaultPattern},
		{"Empty", "", DefaultPattern},
		{"QueryOnly", "?q=x", DefaultPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pattern(tt.endpoint))
		})
	}
}
