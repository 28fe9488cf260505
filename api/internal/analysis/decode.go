package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"contract-lens/api/internal/util"
)

// LLMItem is a validated {status, content} leaf of model output.
type LLMItem struct {
	Title   string
	Status  bool
	Content *string
}

type LLMCategory struct {
	Label string
	Items []LLMItem
}

// LLMOutput is model output after validation. Only known categories are kept,
// in the order the model wrote them.
type LLMOutput struct {
	Categories     []LLMCategory
	RiskFactors    *string
	MissingFactors *string
	LegalTerms     *string
}

// Category returns the category with the given label.
func (o LLMOutput) Category(label string) (LLMCategory, bool) {
	for _, c := range o.Categories {
		if c.Label == label {
			return c, true
		}
	}
	return LLMCategory{}, false
}

// DecodeLLMOutput strips a markdown fence and validates the reply against the
// checklist shape. Unknown top-level keys are dropped and reported as
// warnings; any shape violation is ErrMalformedOutput.
func DecodeLLMOutput(raw string) (LLMOutput, []Warning, error) {
	body := util.StripCodeFences(raw)
	if body == "" {
		return LLMOutput{}, nil, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	var (
		out      LLMOutput
		warnings []Warning
	)
	err := walkObject([]byte(body), func(key string, val json.RawMessage) error {
		switch {
		case isLabel(key):
			c, err := decodeCategory(key, val)
			if err != nil {
				return err
			}
			for i := range out.Categories {
				if out.Categories[i].Label == key {
					out.Categories[i] = c
					return nil
				}
			}
			out.Categories = append(out.Categories, c)
		case key == KeyRiskFactors:
			return decodeFreeText(key, val, &out.RiskFactors)
		case key == KeyMissingFactors:
			return decodeFreeText(key, val, &out.MissingFactors)
		case key == KeyLegalTerms:
			return decodeFreeText(key, val, &out.LegalTerms)
		case isObject(val):
			warnings = append(warnings, Warning{Kind: WarnUnknownCategory, Category: key, Detail: "dropped"})
		default:
			warnings = append(warnings, Warning{Kind: WarnUnknownField, Detail: key})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMalformedOutput) {
			return LLMOutput{}, nil, err
		}
		return LLMOutput{}, nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, warnings, nil
}

func decodeCategory(label string, val json.RawMessage) (LLMCategory, error) {
	c := LLMCategory{Label: label}
	if isNull(val) {
		return c, nil
	}
	if !isObject(val) {
		return c, fmt.Errorf("%w: category %q is not an object", ErrMalformedOutput, label)
	}
	err := walkObject(val, func(title string, raw json.RawMessage) error {
		it, err := decodeItem(raw)
		if err != nil {
			return fmt.Errorf("%w: category %q item %q: %v", ErrMalformedOutput, label, title, err)
		}
		it.Title = title
		for i := range c.Items {
			if c.Items[i].Title == title {
				c.Items[i] = it
				return nil
			}
		}
		c.Items = append(c.Items, it)
		return nil
	})
	return c, err
}

func decodeItem(raw json.RawMessage) (LLMItem, error) {
	var it LLMItem
	if !isObject(raw) {
		return it, errors.New("not an object")
	}
	hasStatus := false
	err := walkObject(raw, func(key string, val json.RawMessage) error {
		switch key {
		case "status":
			if err := json.Unmarshal(val, &it.Status); err != nil || isNull(val) {
				return fmt.Errorf("status must be a boolean, got %s", val)
			}
			hasStatus = true
		case "content":
			if isNull(val) {
				it.Content = nil
				return nil
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("content must be a string or null, got %s", val)
			}
			it.Content = &s
		}
		return nil
	})
	if err != nil {
		return it, err
	}
	if !hasStatus {
		return it, errors.New("status is missing")
	}
	return it, nil
}

// decodeFreeText accepts a string or null. A list of strings is joined with
// newlines, as models sometimes enumerate these fields.
func decodeFreeText(key string, val json.RawMessage, dst **string) error {
	if isNull(val) {
		*dst = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		*dst = &s
		return nil
	}
	var list []string
	if err := json.Unmarshal(val, &list); err == nil {
		s = strings.Join(list, "\n")
		*dst = &s
		return nil
	}
	return fmt.Errorf("%w: %s must be a string or null, got %s", ErrMalformedOutput, key, val)
}

// walkObject calls fn for each member of the JSON object in data, in document
// order. Anything other than exactly one object is an error.
func walkObject(data []byte, fn func(key string, val json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("bad JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected an object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("bad JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("bad JSON: unexpected %v", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("bad JSON at %q: %w", key, err)
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("bad JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("bad JSON: trailing data after object")
	}
	return nil
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}
