package decision

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxNarrativeLength caps the stored narrative in bytes
const maxNarrativeLength = 4000

var (
	errEmptyResponse   = errors.New("empty response")
	errNoNarrative     = errors.New("response has no narrative field")
	errInvalidResponse = errors.New("response is not valid JSON")
)

// narrativeFields are read in priority order; the first non-empty wins
var narrativeFields = []string{"narrative", "explanation", "summary", "reasoning", "rationale"}

// classificationFields are never trusted over the deterministic evaluation
var classificationFields = map[string]bool{
	"checks":   true,
	"verdict":  true,
	"decision": true,
	"status":   true,
	"flagged":  true,
	"score":    true,
}

// Normalize turns a raw source response into a RawDecision. Plain text is
// taken as the narrative; JSON contributes only its narrative fields.
func Normalize(raw string) (RawDecision, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return RawDecision{}, errEmptyResponse
	}

	doc := extractJSON(text)
	if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "```") {
		// prose, possibly quoting a JSON answer
		if doc != "" {
			if d, err := fromJSON(doc); err == nil {
				return d, nil
			}
		}
		return RawDecision{Narrative: truncate(text)}, nil
	}
	if doc == "" {
		return RawDecision{}, errInvalidResponse
	}
	return fromJSON(doc)
}

// fromJSON keeps the first narrative field of doc and lists the
// classification fields it ignored
func fromJSON(doc string) (RawDecision, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return RawDecision{}, errInvalidResponse
	}

	var d RawDecision
	for key := range fields {
		if classificationFields[strings.ToLower(key)] {
			d.Discarded = append(d.Discarded, key)
		}
	}
	sort.Strings(d.Discarded)

	for _, name := range narrativeFields {
		for key, value := range fields {
			if !strings.EqualFold(key, name) {
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err == nil && strings.TrimSpace(s) != "" {
				d.Narrative = truncate(strings.TrimSpace(s))
				return d, nil
			}
		}
	}
	return d, errNoNarrative
}

func truncate(s string) string {
	if len(s) <= maxNarrativeLength {
		return s
	}
	cut := maxNarrativeLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extractJSON returns the first balanced JSON object in content, which may be
// wrapped in markdown fences or prose.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
