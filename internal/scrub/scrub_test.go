package scrub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactorClean(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email",
			in:   "please reply to jane.doe@example.com about this",
			want: "please reply to [redacted] about this",
		},
		{
			name: "phone number",
			in:   "call me at 613-555-0172 tomorrow",
			want: "call me at [redacted] tomorrow",
		},
		{
			name: "sin grouped",
			in:   "my SIN is 046 454 286 and the form rejected it",
			want: "my SIN is [redacted] and the form rejected it",
		},
		{
			name: "passport",
			in:   "passport GA302922 expired",
			want: "passport [redacted] expired",
		},
		{
			name: "clean text untouched",
			in:   "the download link is broken",
			want: "the download link is broken",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Clean(tt.in))
		})
	}
}
