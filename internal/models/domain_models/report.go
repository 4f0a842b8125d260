package domain_models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Report is either a StructuredReport or an UnstructuredReport, never both.
type Report interface {
	IsStructured() bool
	json.Marshaler
	isReport()
}

type ClientInformation struct {
	Name         string `json:"name,omitempty"`
	Age          any    `json:"age,omitempty"`
	Gender       string `json:"gender,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type Severity struct {
	Score    any    `json:"score,omitempty"`
	Category string `json:"category,omitempty"`
}

type HairLossAssessment struct {
	Pattern                    string    `json:"pattern,omitempty"`
	Severity                   *Severity `json:"severity,omitempty"`
	HairlineRecession          string    `json:"hairlineRecession,omitempty"`
	CrownThinning              string    `json:"crownThinning,omitempty"`
	OverallDensity             string    `json:"overallDensity,omitempty"`
	DistinctiveCharacteristics any       `json:"distinctiveCharacteristics,omitempty"`
}

type Characteristics struct {
	HairColor      string `json:"hairColor,omitempty"`
	HairTexture    string `json:"hairTexture,omitempty"`
	HairThickness  string `json:"hairThickness,omitempty"`
	HairDensity    string `json:"hairDensity,omitempty"`
	FaceShape      string `json:"faceShape,omitempty"`
	ScalpCondition string `json:"scalpCondition,omitempty"`
	GrowthPattern  string `json:"growthPattern,omitempty"`
}

type Recommendations struct {
	Approach              string `json:"approach,omitempty"`
	GraftCount            any    `json:"graftCount,omitempty"`
	SpecialConsiderations string `json:"specialConsiderations,omitempty"`
	ExpectedResults       string `json:"expectedResults,omitempty"`
}

// StructuredReport keeps every field the model returned in Fields so unknown
// keys survive a round trip. The typed sections are a read-only view of the
// well-known keys.
type StructuredReport struct {
	ClientInformation  *ClientInformation  `json:"-"`
	HairLossAssessment *HairLossAssessment `json:"-"`
	Characteristics    *Characteristics    `json:"-"`
	Recommendations    *Recommendations    `json:"-"`
	Summary            string              `json:"-"`

	Fields map[string]json.RawMessage `json:"-"`
}

type UnstructuredReport struct {
	RawText string
}

const structuredFlag = "isStructured"

func (*StructuredReport) isReport()   {}
func (*UnstructuredReport) isReport() {}

func (*StructuredReport) IsStructured() bool   { return true }
func (*UnstructuredReport) IsStructured() bool { return false }

// NewStructuredReport builds a report from a decoded JSON object. Values are
// compacted so equal inputs always serialise the same way.
func NewStructuredReport(fields map[string]json.RawMessage) (*StructuredReport, error) {
	r := &StructuredReport{Fields: make(map[string]json.RawMessage, len(fields))}
	for k, v := range fields {
		if k == structuredFlag {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r.Fields[k] = buf.Bytes()
	}
	r.refreshView()
	return r, nil
}

func (r *StructuredReport) refreshView() {
	r.ClientInformation = nil
	r.HairLossAssessment = nil
	r.Characteristics = nil
	r.Recommendations = nil
	r.Summary = ""

	decodeSection(r.Fields["clientInformation"], &r.ClientInformation)
	decodeSection(r.Fields["hairLossAssessment"], &r.HairLossAssessment)
	decodeSection(r.Fields["characteristics"], &r.Characteristics)
	decodeSection(r.Fields["recommendations"], &r.Recommendations)
	if raw, ok := r.Fields["summary"]; ok {
		_ = json.Unmarshal(raw, &r.Summary)
	}
}

// sections whose shape differs from the expected one are left nil
func decodeSection[T any](raw json.RawMessage, dst **T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = &v
}

// AppendNote adds explanatory text to the summary and, when a recommendations
// object is present, to its specialConsiderations.
func (r *StructuredReport) AppendNote(summaryNote, considerationNote string) {
	if summaryNote != "" {
		if _, ok := r.Fields["summary"]; ok {
			r.setString("summary", r.Summary+summaryNote)
		}
	}
	if considerationNote != "" {
		if raw, ok := r.Fields["recommendations"]; ok {
			var rec map[string]json.RawMessage
			if err := json.Unmarshal(raw, &rec); err == nil {
				var current string
				_ = json.Unmarshal(rec["specialConsiderations"], &current)
				rec["specialConsiderations"] = mustEncode(current + considerationNote)
				r.Fields["recommendations"] = mustEncode(rec)
			}
		}
	}
	r.refreshView()
}

func (r *StructuredReport) setString(key, value string) {
	r.Fields[key] = mustEncode(value)
}

func (r *StructuredReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[structuredFlag] = json.RawMessage("true")
	return encodeNoEscape(out)
}

func (r *UnstructuredReport) MarshalJSON() ([]byte, error) {
	return encodeNoEscape(map[string]any{
		structuredFlag: false,
		"rawText":      r.RawText,
	})
}

// Keys lists the top-level fields in stable order.
func (r *StructuredReport) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeStoredReport reverses MarshalJSON for either variant.
func DecodeStoredReport(data []byte) (Report, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	var structured bool
	if raw, ok := fields[structuredFlag]; ok {
		if err := json.Unmarshal(raw, &structured); err != nil {
			return nil, fmt.Errorf("decode report flag: %w", err)
		}
	}
	if !structured {
		var text string
		if raw, ok := fields["rawText"]; ok {
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, fmt.Errorf("decode raw text: %w", err)
			}
		}
		return &UnstructuredReport{RawText: text}, nil
	}
	return NewStructuredReport(fields)
}

func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func mustEncode(v any) json.RawMessage {
	b, err := encodeNoEscape(v)
	if err != nil {
		panic(err)
	}
	return b
}
