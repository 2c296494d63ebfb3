// Package extract recovers a structured record from free-form model output.
//
// Models wrap their JSON in commentary, a result marker and code fences. The
// raw text goes through an ordered list of normalization passes and the
// remainder is parsed as a JSON object. Field access on the result goes
// through Record, which reports missing or mistyped keys as *SchemaError.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultMarker is the token prompts ask the model to put before its JSON.
const ResultMarker = "<출력 결과>"

const fence = "```"

// Pass is one normalization step over model text.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Passes are applied left to right before parsing.
var Passes = []Pass{
	{Name: "marker", Apply: stripMarker},
	{Name: "trim", Apply: strings.TrimSpace},
	{Name: "fence", Apply: stripFence},
	{Name: "punct", Apply: trimPunct},
}

// ExtractionError is returned when the normalized text is not a JSON object.
type ExtractionError struct {
	Raw       string // model output as received
	Attempted string // text handed to the JSON parser
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract record: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Normalize runs every pass over raw.
func Normalize(raw string) string {
	s := raw
	for _, p := range Passes {
		s = p.Apply(s)
	}
	return s
}

// Extract normalizes raw and parses it as a JSON object.
func Extract(raw string) (Record, error) {
	text := Normalize(raw)

	var rec Record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, &ExtractionError{Raw: raw, Attempted: text, Err: err}
	}
	if rec == nil {
		return nil, &ExtractionError{Raw: raw, Attempted: text, Err: fmt.Errorf("not a JSON object")}
	}
	return rec, nil
}

// stripMarker drops everything up to and including the first result marker
// and the colon that prompts put after it.
func stripMarker(s string) string {
	if _, after, ok := strings.Cut(s, ResultMarker); ok {
		return strings.TrimLeft(after, " \t\r\n:")
	}
	return s
}

// stripFence removes an opening fence line (with its language tag) and a closing fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = strings.TrimSpace(s[i:])
	} else {
		s = strings.TrimLeft(s, "`")
	}
	if strings.HasSuffix(s, fence) {
		s = strings.TrimSpace(strings.TrimSuffix(s, fence))
	}
	return s
}

func trimPunct(s string) string {
	return strings.Trim(s, " \t\r\n:")
}
