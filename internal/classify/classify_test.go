// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

// stubBackend returns a canned reply and records the prompts it saw.
type stubBackend struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubBackend) Classify(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testWindow() types.ContextWindow {
	return types.ContextWindow{
		Text:          "Prior work (Smith, 2020) established the baseline.",
		SentenceCount: 1,
		MarkerAt:      11,
	}
}

func testRef() *types.ReferenceEntry {
	return &types.ReferenceEntry{
		Key:     "smith2020",
		Authors: []string{"Smith, A."},
		Year:    2020,
		Title:   "Baseline methods",
		RawText: "Smith, A. (2020). Baseline methods. Journal.",
	}
}

func TestAnalyze(t *testing.T) {
	backend := &stubBackend{
		reply: `{"contribution": "Provides the baseline method.", "purpose": "methodology", "stance": "extend", "confidence": 0.9}`,
	}

	analysis, err := Analyze(context.Background(), backend, testWindow(), testRef(), "My Paper")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Contribution != "Provides the baseline method." {
		t.Errorf("contribution = %q", analysis.Contribution)
	}
	if analysis.Purpose != types.PurposeMethodology {
		t.Errorf("purpose = %q, want methodology", analysis.Purpose)
	}
	if analysis.Stance != types.StanceExtend {
		t.Errorf("stance = %q, want extend", analysis.Stance)
	}
	if analysis.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", analysis.Confidence)
	}
}

func TestAnalyzePromptContents(t *testing.T) {
	backend := &stubBackend{reply: `{"contribution": "x", "purpose": "other", "stance": "neutral", "confidence": 0.5}`}
	win := testWindow()

	if _, err := Analyze(context.Background(), backend, win, testRef(), "My Paper"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(backend.prompts) != 1 {
		t.Fatalf("got %d backend calls, want 1", len(backend.prompts))
	}
	prompt := backend.prompts[0]

	if !strings.Contains(prompt, win.Text) {
		t.Error("prompt missing the context window text")
	}
	if !strings.Contains(prompt, "(Smith, 2020)") {
		t.Error("prompt missing the marker text")
	}
	if !strings.Contains(prompt, "Baseline methods") {
		t.Error("prompt missing the reference hint")
	}
	if !strings.Contains(prompt, `"My Paper"`) {
		t.Error("prompt missing the paper title")
	}
}

func TestMarkerText(t *testing.T) {
	tests := []struct {
		name string
		win  types.ContextWindow
		want string
	}{
		{
			name: "author year marker",
			win:  testWindow(),
			want: "(Smith, 2020)",
		},
		{
			name: "numeric marker",
			win:  types.ContextWindow{Text: "The baseline [3] holds.", MarkerAt: 13},
			want: "[3]",
		},
		{
			name: "numeric marker before a parenthetical",
			win:  types.ContextWindow{Text: "The baseline [3] holds (see Section 2).", MarkerAt: 13},
			want: "[3]",
		},
		{
			name: "author year marker before a bracket",
			win:  types.ContextWindow{Text: "Shown by (Smith, 2020) [sic] throughout.", MarkerAt: 9},
			want: "(Smith, 2020)",
		},
		{
			name: "no closer in range",
			win:  types.ContextWindow{Text: strings.Repeat("x", 80), MarkerAt: 0},
			want: "shown in the passage",
		},
		{
			name: "marker offset out of range",
			win:  types.ContextWindow{Text: "short", MarkerAt: 40},
			want: "shown in the passage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markerText(tt.win); got != tt.want {
				t.Errorf("markerText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeUnresolvedReference(t *testing.T) {
	backend := &stubBackend{reply: `{"contribution": "x", "purpose": "other", "stance": "neutral", "confidence": 0.5}`}

	if _, err := Analyze(context.Background(), backend, testWindow(), nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(backend.prompts[0], "could not be matched") {
		t.Error("prompt for unresolved citation should say the reference is unknown")
	}
}

func TestAnalyzeBackendFailure(t *testing.T) {
	backend := &stubBackend{err: fmt.Errorf("connection refused")}

	_, err := Analyze(context.Background(), backend, testWindow(), testRef(), "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	// One attempt only.
	if len(backend.prompts) != 1 {
		t.Errorf("got %d backend calls, want 1", len(backend.prompts))
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    error
		purpose    types.CitationPurpose
		stance     types.CitationStance
		confidence float64
	}{
		{
			name:       "clean object",
			raw:        `{"contribution": "c", "purpose": "background", "stance": "neutral", "confidence": 0.7}`,
			purpose:    types.PurposeBackground,
			stance:     types.StanceNeutral,
			confidence: 0.7,
		},
		{
			name:       "fenced object",
			raw:        "```json\n{\"contribution\": \"c\", \"purpose\": \"contrast\", \"stance\": \"critique\", \"confidence\": 0.6}\n```",
			purpose:    types.PurposeContrast,
			stance:     types.StanceCritique,
			confidence: 0.6,
		},
		{
			name:       "prose wrapped object",
			raw:        `Here is the analysis: {"contribution": "c", "purpose": "other", "stance": "agree", "confidence": 1.0} Hope this helps.`,
			purpose:    types.PurposeOther,
			stance:     types.StanceAgree,
			confidence: 1.0,
		},
		{
			name:    "missing fields default to unknown",
			raw:     `{"contribution": "only this"}`,
			purpose: types.PurposeUnknown,
			stance:  types.StanceUnknown,
		},
		{
			name:       "unrecognized enum values become unknown",
			raw:        `{"contribution": "c", "purpose": "celebration", "stance": "confused", "confidence": 0.5}`,
			purpose:    types.PurposeUnknown,
			stance:     types.StanceUnknown,
			confidence: 0.5,
		},
		{
			name:       "synonyms normalize",
			raw:        `{"contribution": "c", "purpose": "Supporting Evidence", "stance": "builds-on", "confidence": 0.5}`,
			purpose:    types.PurposeSupportingEvidence,
			stance:     types.StanceUnknown,
			confidence: 0.5,
		},
		{
			name:       "confidence clamped",
			raw:        `{"contribution": "c", "purpose": "other", "stance": "neutral", "confidence": 3.5}`,
			purpose:    types.PurposeOther,
			stance:     types.StanceNeutral,
			confidence: 1.0,
		},
		{
			name:    "empty reply",
			raw:     "",
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "no JSON at all",
			raw:     "I cannot analyze this citation.",
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "broken JSON",
			raw:     `{"contribution": "c", "purpose":`,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := parseResponse(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResponse: %v", err)
			}
			if analysis.Purpose != tt.purpose {
				t.Errorf("purpose = %q, want %q", analysis.Purpose, tt.purpose)
			}
			if analysis.Stance != tt.stance {
				t.Errorf("stance = %q, want %q", analysis.Stance, tt.stance)
			}
			if analysis.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", analysis.Confidence, tt.confidence)
			}
		})
	}
}

func TestReferenceHint(t *testing.T) {
	hint := ReferenceHint(testRef())
	if !strings.Contains(hint, "Baseline methods") || !strings.Contains(hint, "Smith, A.") {
		t.Errorf("hint = %q", hint)
	}

	if got := ReferenceHint(nil); !strings.Contains(got, "unknown") {
		t.Errorf("nil hint = %q", got)
	}

	// Long raw text is truncated.
	long := &types.ReferenceEntry{RawText: strings.Repeat("x", 1000)}
	if got := ReferenceHint(long); len(got) != maxHintChars {
		t.Errorf("hint length = %d, want %d", len(ReferenceHint(long)), maxHintChars)
	}
}

func TestFailedAnalysis(t *testing.T) {
	a := FailedAnalysis()
	if a.Purpose != types.PurposeUnknown || a.Stance != types.StanceUnknown {
		t.Errorf("failed analysis = %+v, want all unknown", a)
	}
	if a.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", a.Confidence)
	}
	if a.Contribution != "unknown" {
		t.Errorf("contribution = %q, want unknown", a.Contribution)
	}
}
