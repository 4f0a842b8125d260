package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"hairsim/internal/models/domain_models"
)

// maxCandidates bounds how many '{' positions are tried before giving up.
const maxCandidates = 64

type ReportParser struct {
	log *zap.Logger
}

func NewReportParser(log *zap.Logger) *ReportParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportParser{log: log.Named("report_parser")}
}

var defaultParser = NewReportParser(nil)

// ParseReport turns raw model output into a report. It never fails: text that
// holds no decodable JSON object comes back as an UnstructuredReport.
func ParseReport(raw string) domain_models.Report {
	return defaultParser.Parse(raw)
}

func (p *ReportParser) Parse(raw string) domain_models.Report {
	cleaned := stripCodeFences(raw)

	start := strings.IndexByte(cleaned, '{')
	for tries := 0; start != -1 && tries < maxCandidates; tries++ {
		if end := findMatchingBrace(cleaned, start); end != -1 {
			report, err := decodeReportObject(cleaned[start : end+1])
			if err == nil {
				return report
			}
			p.log.Debug("balanced span is not a report object", zap.Int("offset", start), zap.Error(err))
		}
		next := strings.IndexByte(cleaned[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	first := strings.IndexByte(cleaned, '{')
	last := strings.LastIndexByte(cleaned, '}')
	if first != -1 && last > first {
		report, err := decodeReportObject(cleaned[first : last+1])
		if err == nil {
			return report
		}
		p.log.Debug("outer span is not a report object", zap.Error(err))
	}

	p.log.Debug("model output kept as raw text", zap.Int("length", len(raw)))
	return &domain_models.UnstructuredReport{RawText: raw}
}

// MarshalReport serialises either report variant.
func MarshalReport(r domain_models.Report) ([]byte, error) {
	switch v := r.(type) {
	case *domain_models.StructuredReport:
		return v.MarshalJSON()
	case *domain_models.UnstructuredReport:
		return v.MarshalJSON()
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown report type %T", r)
	}
}

func decodeReportObject(s string) (domain_models.Report, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("null object")
	}
	return domain_models.NewStructuredReport(fields)
}

// stripCodeFences removes markdown code fences models like to wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// findMatchingBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func findMatchingBrace(s string, start int) int {
	if start >= len(s) || s[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
