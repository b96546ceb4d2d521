package extract

import (
	"strings"

	"llmstxtgen/internal/urlutil"
	"llmstxtgen/pkg/types"
)

const (
	soft404ThinStubLen = 200
	soft404NearDupLen  = 400
)

// notFoundPhrases are the indicator strings for pages that return 200 but
// render not-found content.
var notFoundPhrases = []string{
	"page not found",
	"not found",
	"404",
	"doesn't exist",
	"does not exist",
	"could not be found",
	"no longer available",
}

// IsSoft404 flags a non-homepage page that is effectively a not-found
// duplicate of the homepage. Runs once per page against the immutable
// homepage signature, never against any other page.
func IsSoft404(rec *types.PageRecord, homepage *types.HomepageSignature) bool {
	if rec == nil || homepage == nil {
		return false
	}
	if rec.URL == homepage.URL {
		return false
	}

	haystack := strings.ToLower(rec.Title + " " + rec.VisibleSnippet)
	for _, phrase := range notFoundPhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}

	if resolvesToHomepage(rec.CanonicalURL, homepage.URL) || resolvesToHomepage(rec.OGURL, homepage.URL) {
		return true
	}

	// thin stub reusing homepage metadata
	if rec.Title == homepage.Title &&
		rec.BestDescription == homepage.BestDescription &&
		rec.VisibleTextLen < soft404ThinStubLen {
		return true
	}

	// near-duplicate thin page
	if rec.VisibleTextHash == homepage.VisibleTextHash &&
		rec.VisibleTextLen < soft404NearDupLen {
		return true
	}

	return false
}

func resolvesToHomepage(raw, homepageKey string) bool {
	if raw == "" {
		return false
	}
	return urlutil.Normalize(raw) == homepageKey
}
