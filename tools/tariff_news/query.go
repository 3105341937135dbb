package tariffnews

import "strings"

const baseQuery = "reactions to US tariffs April 2025"

// BuildQuery anchors every query on US tariffs, narrowing to a country when
// one is given and appending any extra keywords verbatim. Empty strings count
// as absent.
func BuildQuery(in ToolInput) string {
	parts := make([]string, 0, 2)
	if in.Country != nil && *in.Country != "" {
		parts = append(parts, "reactions from "+*in.Country+" to US tariffs")
	} else {
		parts = append(parts, baseQuery)
	}
	if in.AdditionalKeywords != nil && *in.AdditionalKeywords != "" {
		parts = append(parts, *in.AdditionalKeywords)
	}
	return strings.Join(parts, " ")
}
