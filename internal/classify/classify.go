// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify sends citation contexts to the black-box classifier and
// parses its structured reply into a CitationAnalysis.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

var (
	// ErrMalformedResponse reports classifier output that is empty or does
	// not carry the expected JSON shape. Non-fatal per citation.
	ErrMalformedResponse = errors.New("malformed classifier response")

	// ErrUnavailable reports a transport or service failure reaching the
	// classifier. Propagated, never retried here; transport-level retry is
	// the backend's concern.
	ErrUnavailable = errors.New("classifier unavailable")
)

// Backend is the injected classifier capability: one prompt in, one raw
// reply out. Implementations handle transport only; prompt construction
// and reply parsing live here so the pipeline is testable with a
// deterministic stub.
type Backend interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// maxHintChars bounds the reference hint included in the prompt so a
// malformed bibliography entry cannot blow up the request.
const maxHintChars = 300

// analysisPromptTmpl instructs the model to analyze one citation in context
// and reply with a bare JSON object.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are a research assistant that analyzes academic citations.

The passage below is taken from the paper {{if .PaperTitle}}"{{.PaperTitle}}"{{else}}under analysis{{end}}. It contains the citation marker {{.Marker}}.

Cited work: {{.ReferenceHint}}

Passage:
"{{.Context}}"

Analyze what the cited work contributes at this point in the text and report:
- contribution: a 1-2 line summary of what the cited work contributes to the citing paper
- purpose: one of "supporting_evidence", "contrast", "background", "methodology", "other"
- stance: the citing authors' attitude toward the cited work, one of "agree", "critique", "extend", "neutral"
- confidence: a float between 0.0 and 1.0

Respond with a single JSON object containing exactly the keys "contribution", "purpose", "stance", and "confidence". Do not include any text outside the JSON object.
`))

// promptData feeds the analysis prompt template.
type promptData struct {
	PaperTitle    string
	Marker        string
	ReferenceHint string
	Context       string
}

// response is the classifier's reply shape. Pointers distinguish missing
// fields from zero values.
type response struct {
	Contribution string   `json:"contribution"`
	Purpose      string   `json:"purpose"`
	Stance       string   `json:"stance"`
	Confidence   *float64 `json:"confidence"`
}

// Analyze builds the bounded prompt for one citation occurrence, makes
// exactly one backend call, and parses the reply. Missing reply fields
// default to the unknown value rather than failing the call. No caching
// happens here; dedup and caching are the orchestrator's concern.
func Analyze(ctx context.Context, backend Backend, win types.ContextWindow, ref *types.ReferenceEntry, paperTitle string) (types.CitationAnalysis, error) {
	prompt, err := renderPrompt(win, ref, paperTitle)
	if err != nil {
		return types.CitationAnalysis{}, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := backend.Classify(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrUnavailable) {
			return types.CitationAnalysis{}, err
		}
		return types.CitationAnalysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return parseResponse(raw)
}

// renderPrompt executes the analysis template for one occurrence.
func renderPrompt(win types.ContextWindow, ref *types.ReferenceEntry, paperTitle string) (string, error) {
	data := promptData{
		PaperTitle:    paperTitle,
		Marker:        markerText(win),
		ReferenceHint: ReferenceHint(ref),
		Context:       win.Text,
	}

	var buf bytes.Buffer
	if err := analysisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// markerText recovers the marker's raw text from the window when possible.
// The nearest closing delimiter wins, so a numeric marker followed by an
// unrelated parenthesis still renders as "[3]".
func markerText(win types.ContextWindow) string {
	if win.MarkerAt >= 0 && win.MarkerAt < len(win.Text) {
		rest := win.Text[win.MarkerAt:]
		end := -1
		for _, closer := range []string{")", "]"} {
			if i := strings.Index(rest, closer); i >= 0 && i < 60 && (end < 0 || i < end) {
				end = i
			}
		}
		if end >= 0 {
			return rest[:end+1]
		}
	}
	return "shown in the passage"
}

// ReferenceHint renders the resolved reference's title and authors for the
// prompt, or a note that resolution failed.
func ReferenceHint(ref *types.ReferenceEntry) string {
	if ref == nil {
		return "unknown (the marker could not be matched to a bibliography entry)"
	}

	var parts []string
	if ref.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", ref.Title))
	}
	if len(ref.Authors) > 0 {
		parts = append(parts, "by "+strings.Join(ref.Authors, "; "))
	}
	if ref.Year > 0 {
		parts = append(parts, fmt.Sprintf("(%d%s)", ref.Year, ref.Suffix))
	}

	hint := strings.Join(parts, " ")
	if hint == "" {
		hint = ref.RawText
	}
	if len(hint) > maxHintChars {
		hint = hint[:maxHintChars]
	}
	return hint
}

// parseResponse decodes the classifier reply. The reply must be (or
// contain) a JSON object; anything else is ErrMalformedResponse. Fields
// the classifier omitted default to unknown values.
func parseResponse(raw string) (types.CitationAnalysis, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.CitationAnalysis{}, fmt.Errorf("%w: empty output", ErrMalformedResponse)
	}

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// Models occasionally wrap the object in prose or fences; try the
		// outermost braces before giving up.
		start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return types.CitationAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
			return types.CitationAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	analysis := types.CitationAnalysis{
		Contribution: strings.TrimSpace(resp.Contribution),
		Purpose:      normalizePurpose(resp.Purpose),
		Stance:       normalizeStance(resp.Stance),
	}
	if analysis.Contribution == "" {
		analysis.Contribution = "unknown"
	}
	if resp.Confidence != nil {
		analysis.Confidence = clamp01(*resp.Confidence)
	}
	return analysis, nil
}

func normalizePurpose(s string) types.CitationPurpose {
	switch normalizeEnum(s) {
	case "supporting_evidence", "support", "supporting", "evidence":
		return types.PurposeSupportingEvidence
	case "contrast", "contrasting", "contrasting_view":
		return types.PurposeContrast
	case "background", "background_information":
		return types.PurposeBackground
	case "methodology", "method", "methods":
		return types.PurposeMethodology
	case "other":
		return types.PurposeOther
	default:
		return types.PurposeUnknown
	}
}

func normalizeStance(s string) types.CitationStance {
	switch normalizeEnum(s) {
	case "agree", "agreement":
		return types.StanceAgree
	case "critique", "criticize", "critical", "disagree":
		return types.StanceCritique
	case "extend", "extends", "extension", "build_on":
		return types.StanceExtend
	case "neutral":
		return types.StanceNeutral
	default:
		return types.StanceUnknown
	}
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FailedAnalysis is the record for an occurrence whose classifier call
// failed: every field unknown, zero confidence.
func FailedAnalysis() types.CitationAnalysis {
	return types.CitationAnalysis{
		Contribution: "unknown",
		Purpose:      types.PurposeUnknown,
		Stance:       types.StanceUnknown,
		Confidence:   0,
	}
}
