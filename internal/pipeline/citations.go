package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Opening citation tags the synthesis prompt asks for: <RAG id=N> for
	// corpus passages, <Internet id=N> for web results. Ids are per kind and
	// 1-based. Quoted ids and a self-closing slash are tolerated.
	citationTagRE = regexp.MustCompile(`<(RAG|Internet)\s+id\s*=\s*"?(\d{1,3})"?\s*/?>`)

	// Protocol leftovers that carry no citation: closing tags and tags
	// without a usable id.
	tagDebrisRE = regexp.MustCompile(`</?(?:RAG|Internet)\b[^>]*>`)

	// Bracketed numbers are only ever written by this resolver, so any found
	// in raw completion text are fabricated citations.
	bareMarkerRE = regexp.MustCompile(`\[\d{1,3}\]`)

	// Cleanup for the holes left by removed markers.
	spaceBeforePunctRE = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	spaceRunRE         = regexp.MustCompile(`[ \t]{2,}`)
)

// resolveCitations rewrites citation tags in the synthesized text into
// numbered [n] markers and builds the reference list. Markers are assigned in
// order of first appearance; repeating a tag reuses its marker and its single
// reference entry. Tags whose kind and id match no supplied source are removed
// from the text in both strictness modes, as are fabricated bracket markers;
// the count of removals is returned so flag mode can surface a warning.
func resolveCitations(text string, sources []ToolResult) (string, []Reference, int) {
	var corpus, web []string
	for _, src := range sources {
		if src.Kind == KindWeb {
			web = append(web, src.SourceID)
		} else {
			corpus = append(corpus, src.SourceID)
		}
	}

	dropped := 0
	cleaned := bareMarkerRE.ReplaceAllStringFunc(text, func(string) string {
		dropped++
		return ""
	})

	references := make([]Reference, 0, len(sources))
	markers := make(map[string]int, len(sources))
	cleaned = citationTagRE.ReplaceAllStringFunc(cleaned, func(tag string) string {
		parts := citationTagRE.FindStringSubmatch(tag)
		ids := corpus
		if parts[1] == "Internet" {
			ids = web
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 || n > len(ids) {
			dropped++
			return ""
		}
		key := parts[1] + ":" + strconv.Itoa(n)
		marker, seen := markers[key]
		if !seen {
			marker = len(references) + 1
			markers[key] = marker
			references = append(references, Reference{Marker: marker, SourceID: ids[n-1]})
		}
		return "[" + strconv.Itoa(marker) + "]"
	})

	if dropped > 0 || tagDebrisRE.MatchString(cleaned) {
		cleaned = tagDebrisRE.ReplaceAllString(cleaned, "")
		cleaned = spaceBeforePunctRE.ReplaceAllString(cleaned, "$1")
		cleaned = spaceRunRE.ReplaceAllString(cleaned, " ")
	}
	return strings.TrimSpace(cleaned), references, dropped
}
