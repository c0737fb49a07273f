package assistant

import "strings"

type keywordGroup struct {
	key      string
	keywords []string
}

// groups are scanned in order; the first group with a matching keyword wins.
var groups = []keywordGroup{
	{key: "sahayak.responses.greeting", keywords: []string{"hello", "hi", "namaste"}},
	{key: "sahayak.responses.help", keywords: []string{"help", "sahayata"}},
	{key: "sahayak.responses.kyc", keywords: []string{"kyc", "verification"}},
	{key: "sahayak.responses.documents", keywords: []string{"document", "dokumen"}},
	{key: "sahayak.responses.thanks", keywords: []string{"thank", "dhanyavad"}},
}

// DefaultResponseKey is returned when no keyword group matches.
const DefaultResponseKey = "sahayak.responses.default"

// ResponseKey picks the reply translation key for a user message using
// case-insensitive substring matching.
func ResponseKey(text string) string {
	lower := strings.ToLower(text)
	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.key
			}
		}
	}
	return DefaultResponseKey
}
