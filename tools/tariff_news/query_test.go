package tariffnews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   ToolInput
		want string
	}{
		{name: "no input", want: "reactions to US tariffs April 2025"},
		{name: "country", in: ToolInput{Country: strPtr("Canada")}, want: "reactions from Canada to US tariffs"},
		{
			name: "keywords only",
			in:   ToolInput{AdditionalKeywords: strPtr("steel")},
			want: "reactions to US tariffs April 2025 steel",
		},
		{
			name: "country and keywords",
			in:   ToolInput{Country: strPtr("South Korea"), AdditionalKeywords: strPtr("autos retaliation")},
			want: "reactions from South Korea to US tariffs autos retaliation",
		},
		{
			name: "empty strings are absent",
			in:   ToolInput{Country: strPtr(""), AdditionalKeywords: strPtr("")},
			want: "reactions to US tariffs April 2025",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildQuery(tt.in))
		})
	}
}
