package statement

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"github.com/ppiankov/coinsight/internal/model"
)

// ErrMalformedResponse is returned when model output does not have the
// requested shape
var ErrMalformedResponse = errors.New("malformed model response")

// ParsePairs reads a list-of-pairs literal such as
// [['Statement A', '10'], ["Statement B", 12]]. Code fences, single
// quotes and trailing commas are tolerated. Numeric pages become strings.
func ParsePairs(reply string) ([]model.StatementPair, error) {
	body := stripFences(reply)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no list in reply %q: %w", truncate(reply, 120), ErrMalformedResponse)
	}
	body = body[start : end+1]

	raw, err := decodeLenient(body)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedResponse)
	}

	pairs := make([]model.StatementPair, 0, len(raw))
	for i, item := range raw {
		if len(item) < 2 {
			return nil, fmt.Errorf("item %d has %d elements, want 2: %w", i, len(item), ErrMalformedResponse)
		}
		name, ok := item[0].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("item %d has no statement name: %w", i, ErrMalformedResponse)
		}
		page, ok := scalarString(item[1])
		if !ok {
			return nil, fmt.Errorf("item %d has page %v: %w", i, item[1], ErrMalformedResponse)
		}
		pairs = append(pairs, model.StatementPair{Name: strings.TrimSpace(name), Page: page})
	}
	return pairs, nil
}

// decodeLenient tries strict JSON, then a repaired form, then Hjson
func decodeLenient(body string) ([][]any, error) {
	var out [][]any
	if err := json.Unmarshal([]byte(body), &out); err == nil {
		return out, nil
	}

	if repaired, err := jsonrepair.RepairJSON(body); err == nil {
		out = nil
		if err := json.Unmarshal([]byte(repaired), &out); err == nil {
			return out, nil
		}
	}

	var loose []any
	if err := hjson.Unmarshal([]byte(body), &loose); err != nil {
		return nil, fmt.Errorf("parse list literal: %v", err)
	}
	out = make([][]any, 0, len(loose))
	for i, item := range loose {
		inner, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not a list", i)
		}
		out = append(out, inner)
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), strings.TrimSpace(x) != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
