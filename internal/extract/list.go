// Package extract recovers structured values from free-form model output.
//
// Every exported function is a pure function of its input. Each recovery strategy is a
// separate attempt that either yields a value or reports not found; attempts run in a fixed
// order and the first one that yields a value wins.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// maximum number of '{' offsets tried when looking for JSON embedded in prose
const maxEmbeddedStarts = 32

var (
	jsonFence     = regexp.MustCompile("(?is)```json\\s*(.*?)```")
	listMarker    = regexp.MustCompile(`^(?:(?:\d{1,3}\s*[.)、:：]|[-*•+>]|#{1,6})\s*)+`)
	structuralKey = regexp.MustCompile(`^"?[\p{L}\p{N}_ -]+"?\s*:\s*[\[{]?$`)
)

type listAttempt func(text, field string) ([]string, bool)

// listAttempts is the strict-first order: exact JSON recovers the intended order and meaning,
// the line heuristic in List only runs when none of these yields a list.
var listAttempts = []listAttempt{
	fencedList,
	wholeTextList,
	embeddedList,
}

// List returns the string items of the array named field in text.
//
// The JSON may be in a ```json fence, be the whole text, or be an object embedded in prose. A
// bare array is accepted only when it is the whole fence or the whole text. When no JSON of the right shape is found, the text is split
// into lines with list markers and JSON punctuation removed. List never fails; empty input
// yields nil.
func List(text, field string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, attempt := range listAttempts {
		if items, ok := attempt(text, field); ok {
			return items
		}
	}
	return splitLines(text)
}

func fencedList(text, field string) ([]string, bool) {
	for _, match := range jsonFence.FindAllStringSubmatch(text, -1) {
		if items, ok := decodeList(strings.TrimSpace(match[1]), field); ok {
			return items, true
		}
	}
	return nil, false
}

func wholeTextList(text, field string) ([]string, bool) {
	trimmed := strings.TrimSpace(text)
	if !looksLikeJSON(trimmed) {
		return nil, false
	}
	return decodeList(trimmed, field)
}

// embeddedList decodes the first object carrying field that starts at any '{' in the prose.
// Arrays found mid-text are asides or other fields, never the list itself.
func embeddedList(text, field string) ([]string, bool) {
	tried := 0
	for i := 0; i < len(text) && tried < maxEmbeddedStarts; i++ {
		if text[i] != '{' {
			continue
		}
		tried++

		var object map[string]interface{}
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&object); err != nil {
			continue
		}
		if _, ok := object[field]; !ok {
			continue
		}
		if items, ok := listFromValue(object, field); ok {
			return items, true
		}
	}
	return nil, false
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func decodeList(raw, field string) ([]string, bool) {
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false
	}
	return listFromValue(value, field)
}

// listFromValue accepts {"<field>": [strings]} or a bare [strings]. Any non-string element is a
// shape mismatch.
func listFromValue(value interface{}, field string) ([]string, bool) {
	var arr []interface{}
	switch v := value.(type) {
	case map[string]interface{}:
		inner, ok := v[field].([]interface{})
		if !ok {
			return nil, false
		}
		arr = inner
	case []interface{}:
		arr = v
	default:
		return nil, false
	}

	items := make([]string, 0, len(arr))
	for _, el := range arr {
		s, ok := el.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items, true
}

// splitLines is the last resort: one item per remaining non-empty line.
func splitLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if item, ok := cleanLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func cleanLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "```") {
		return "", false
	}
	if strings.Trim(line, "{}[],:\"' \t") == "" {
		return "", false
	}
	if structuralKey.MatchString(line) {
		return "", false
	}

	line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
	line = strings.TrimSpace(strings.TrimRight(line, ","))
	line = unquote(line)
	if line == "" {
		return "", false
	}
	// headings such as "Here are the questions:"
	if strings.HasSuffix(line, ":") || strings.HasSuffix(line, "：") {
		return "", false
	}
	return line, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var decoded string
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return strings.TrimSpace(decoded)
		}
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
