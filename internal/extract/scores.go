package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minScore = 1
	maxScore = 5
)

type scoreAttempt func(text, field string) (map[string]interface{}, bool)

var scoreAttempts = []scoreAttempt{
	fencedScoreBlock,
	directScoreObject,
	scanScoreObject,
}

// Scores finds {"<field>": {"<dimension>": <score>, ...}} anywhere in text and returns the inner
// map. Scores are rounded to integers and must lie in 1..5; a map with any unusable value is
// reported as not found rather than returned partially.
func Scores(text, field string) (map[string]int, bool) {
	if strings.TrimSpace(text) == "" || field == "" {
		return nil, false
	}
	for _, attempt := range scoreAttempts {
		if inner, ok := attempt(text, field); ok {
			return validateScores(inner)
		}
	}
	return nil, false
}

// fencedScoreBlock matches a ```json fence whose object mentions the field. Only one level of
// nesting inside the object is allowed by the pattern.
func fencedScoreBlock(text, field string) (map[string]interface{}, bool) {
	pattern := regexp.MustCompile("(?is)```json\\s*(\\{(?:[^{}]|\\{[^{}]*\\})*?\"" +
		regexp.QuoteMeta(field) + "\"(?:[^{}]|\\{[^{}]*\\})*?\\})\\s*```")
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	return decodeScoreObject(match[1], field)
}

// directScoreObject matches { "<field>": { ... } } outside any fence.
func directScoreObject(text, field string) (map[string]interface{}, bool) {
	pattern := regexp.MustCompile(`(?is)(\{\s*"` + regexp.QuoteMeta(field) + `"\s*:\s*\{.*?\}\s*\})`)
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	return decodeScoreObject(match[1], field)
}

// scanScoreObject locates the field, walks back to the nearest '{' and counts braces forward to
// its partner. The enclosing object may itself contain nested braces, which a regular
// expression cannot balance.
func scanScoreObject(text, field string) (map[string]interface{}, bool) {
	keyAt := strings.Index(text, `"`+field+`"`)
	if keyAt < 0 {
		return nil, false
	}
	start := strings.LastIndex(text[:keyAt], "{")
	if start < 0 {
		return nil, false
	}
	end, ok := matchingBrace(text, start)
	if !ok {
		return nil, false
	}
	return decodeScoreObject(text[start:end+1], field)
}

// matchingBrace returns the index of the '}' closing the '{' at start. Braces inside JSON
// strings are ignored.
func matchingBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeScoreObject(raw, field string) (map[string]interface{}, bool) {
	decoder := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	decoder.UseNumber()

	var outer map[string]interface{}
	if err := decoder.Decode(&outer); err != nil {
		return nil, false
	}
	inner, ok := outer[field].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return inner, true
}

func validateScores(inner map[string]interface{}) (map[string]int, bool) {
	if len(inner) == 0 {
		return nil, false
	}

	scores := make(map[string]int, len(inner))
	for name, raw := range inner {
		var value float64
		var err error
		switch v := raw.(type) {
		case json.Number:
			value, err = v.Float64()
		case string:
			value, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		default:
			return nil, false
		}
		if err != nil {
			return nil, false
		}

		score := int(math.Round(value))
		if score < minScore || score > maxScore {
			return nil, false
		}
		scores[strings.TrimSpace(name)] = score
	}
	return scores, true
}
