// Package turnparse turns raw agent text into a validated turn Output.
//
// Providers wrap answers in markdown fences, nest them in transport
// envelopes (a one-item list, or an object whose "result" field carries the
// serialized payload) and make small syntax slips. Parse runs an ordered chain
// of pure text transforms and stops at the first one that decodes.
package turnparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aimafia/internal/logging"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Output is the agent response contract.
type Output struct {
	// Strategy is nil when the agent sent no memo; a non-nil value replaces
	// the previous memo entirely.
	Strategy *string
	Speech   string
	// Vote is the raw vote text, empty for null.
	Vote string
}

// Stage names the step of the recovery chain that failed.
type Stage string

const (
	StageEmpty    Stage = "empty"
	StageDecode   Stage = "decode"
	StageRepair   Stage = "repair"
	StageExtract  Stage = "extract"
	StageEnvelope Stage = "envelope"
	StageSchema   Stage = "schema"
)

// maxRawInError bounds the raw text carried by ParseError.
const maxRawInError = 500

// maxEnvelopeDepth bounds nested envelope unwrapping.
const maxEnvelopeDepth = 3

// ParseError reports an unrecoverable response.
type ParseError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed at %s: %v (raw: %q)", e.Stage, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(stage Stage, raw string, err error) *ParseError {
	return &ParseError{Stage: stage, Raw: truncate(raw, maxRawInError), Err: err}
}

var (
	ErrEmpty       = errors.New("empty response")
	ErrNoJSON      = errors.New("no balanced JSON region")
	ErrNotContract = errors.New("decoded value is neither a turn nor an envelope")
)

// contractKeys are the top-level keys that mark a decoded object as a turn.
var contractKeys = []string{"strategy", "notes", "thought", "speech", "vote"}

// Parse runs the recovery chain over raw agent text.
func Parse(raw string) (Output, error) {
	return parse(raw, raw, 0)
}

func parse(original, text string, depth int) (Output, error) {
	if depth > maxEnvelopeDepth {
		return Output{}, newParseError(StageEnvelope, original, fmt.Errorf("more than %d nested envelopes", maxEnvelopeDepth))
	}

	raw := strings.TrimSpace(text)
	if raw == "" {
		return Output{}, newParseError(StageEmpty, original, ErrEmpty)
	}
	stripped, _ := StripFences(raw)
	if stripped == "" {
		return Output{}, newParseError(StageEmpty, original, ErrEmpty)
	}

	value, stage, err := decodeChain(stripped)
	if err != nil && stripped != raw {
		// The fence may have cut through the payload; search the raw text.
		if v, _, rawErr := decodeChain(raw); rawErr == nil {
			logging.ParseDebug("recovered from raw text after fence strip failed")
			value, err = v, nil
		}
	}
	if err != nil {
		return Output{}, newParseError(stage, original, err)
	}

	// A one-item list wrapping the payload.
	if list, ok := value.([]any); ok {
		if len(list) != 1 {
			return Output{}, newParseError(StageEnvelope, original, fmt.Errorf("list envelope with %d items", len(list)))
		}
		value = list[0]
		if s, ok := value.(string); ok {
			logging.ParseDebug("unwrapping list envelope (depth %d)", depth)
			return parse(original, s, depth+1)
		}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return Output{}, newParseError(StageEnvelope, original, ErrNotContract)
	}

	if isContract(obj) {
		out, err := fromObject(obj)
		if err != nil {
			return Output{}, newParseError(StageSchema, original, err)
		}
		return out, nil
	}

	inner, ok := UnwrapEnvelope(obj)
	if !ok {
		return Output{}, newParseError(StageEnvelope, original, ErrNotContract)
	}
	logging.ParseDebug("unwrapping object envelope (depth %d)", depth)
	return parse(original, inner, depth+1)
}

// decodeChain tries, in order: strict decode, syntax repair, then each
// balanced region of the text, first as is and then repaired. Among regions an
// object wins over a list, so stray bracketed prose before the payload is
// skipped.
func decodeChain(text string) (any, Stage, error) {
	v, err := Decode(text)
	if err == nil {
		return v, StageDecode, nil
	}
	repaired, _ := RepairSyntax(text)
	if v, rerr := Decode(repaired); rerr == nil {
		logging.ParseDebug("recovered at stage %s", StageRepair)
		return v, StageRepair, nil
	}

	regions := BalancedRegions(text)
	if len(regions) == 0 {
		return nil, StageExtract, ErrNoJSON
	}
	var fallback any
	found := false
	lastErr := err
	for _, repair := range []bool{false, true} {
		for _, region := range regions {
			if repair {
				region, _ = RepairSyntax(region)
			}
			v, err := Decode(region)
			if err != nil {
				lastErr = err
				continue
			}
			if _, ok := v.(map[string]any); ok {
				logging.ParseDebug("recovered at stage %s", StageExtract)
				return v, StageExtract, nil
			}
			if !found {
				fallback, found = v, true
			}
		}
	}
	if found {
		logging.ParseDebug("recovered at stage %s", StageExtract)
		return fallback, StageExtract, nil
	}
	return nil, StageExtract, lastErr
}

// Decode strictly decodes a single JSON value. Numbers stay json.Number.
func Decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func isContract(obj map[string]any) bool {
	for _, k := range contractKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// UnwrapEnvelope extracts the serialized payload from a transport envelope:
// the "result" field, or the only string field of the object. Object-valued
// results are re-encoded.
func UnwrapEnvelope(obj map[string]any) (string, bool) {
	if r, ok := obj["result"]; ok {
		switch v := r.(type) {
		case string:
			return v, true
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return "", false
			}
			return string(b), true
		}
	}

	var only string
	found := 0
	for _, v := range obj {
		if s, ok := v.(string); ok {
			only = s
			found++
		}
	}
	if found == 1 && len(obj) == 1 {
		return only, true
	}
	return "", false
}

var turnSchema = jsonschema.MustCompileString("turn.json", `{
	"type": "object",
	"properties": {
		"strategy": {"type": ["string", "null"]},
		"notes":    {"type": ["string", "null"]},
		"thought":  {"type": ["string", "null"]},
		"speech":   {"type": ["string", "null"]},
		"vote":     {}
	},
	"anyOf": [
		{"required": ["strategy"]},
		{"required": ["notes"]},
		{"required": ["thought"]},
		{"required": ["speech"]},
		{"required": ["vote"]}
	]
}`)

func fromObject(obj map[string]any) (Output, error) {
	if err := turnSchema.Validate(obj); err != nil {
		return Output{}, err
	}

	var out Output
	for _, k := range []string{"strategy", "notes", "thought"} {
		if s, ok := obj[k].(string); ok {
			memo := s
			out.Strategy = &memo
			break
		}
	}
	out.Speech, _ = obj["speech"].(string)
	out.Vote = voteText(obj["vote"])
	return out, nil
}

// voteText coerces the vote field. A one-item list of a string yields that
// string; any other non-string value yields "" so the caller's phase default
// applies instead of failing the turn.
func voteText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		if len(x) == 1 {
			if s, ok := x[0].(string); ok {
				return s
			}
		}
	}
	logging.ParseDebug("discarding non-string vote %v", v)
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
