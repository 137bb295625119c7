// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"testing"

	"github.com/pdiddy/citation-decoder/internal/refindex"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

func buildIndex(t *testing.T, bib string) *refindex.Index {
	t.Helper()
	idx, err := refindex.Build(bib)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func marker(keys ...string) types.CitationMarker {
	return types.CitationMarker{
		RawText:       "(test)",
		StartOffset:   10,
		EndOffset:     16,
		CandidateKeys: keys,
	}
}

func TestResolveNumeric(t *testing.T) {
	idx := buildIndex(t, `
[1] Smith, A. First paper. Journal, 2020.
[2] Jones, B. Second paper. Journal, 2019.
`)

	resolved := Resolve(marker("1"), idx)
	if len(resolved) != 1 {
		t.Fatalf("got %d resolutions, want 1", len(resolved))
	}
	rc := resolved[0]
	if rc.Confidence != types.ResolutionExact {
		t.Errorf("confidence = %q, want exact", rc.Confidence)
	}
	if rc.Reference == nil || rc.Reference.Key != "1" {
		t.Errorf("reference = %+v, want entry 1", rc.Reference)
	}
}

func TestResolveNumericMissing(t *testing.T) {
	idx := buildIndex(t, "[1] Smith, A. Only paper. Journal, 2020.\n")

	rc := Resolve(marker("7"), idx)[0]
	if rc.Confidence != types.ResolutionUnresolved {
		t.Errorf("confidence = %q, want unresolved", rc.Confidence)
	}
	if rc.Reference != nil {
		t.Errorf("reference = %+v, want nil", rc.Reference)
	}
}

func TestResolveListMarker(t *testing.T) {
	idx := buildIndex(t, `
[1] Smith, A. First paper. Journal, 2020.
[2] Jones, B. Second paper. Journal, 2019.
`)

	resolved := Resolve(marker("1", "2", "9"), idx)
	if len(resolved) != 3 {
		t.Fatalf("got %d resolutions, want 3", len(resolved))
	}
	if resolved[0].Confidence != types.ResolutionExact || resolved[1].Confidence != types.ResolutionExact {
		t.Error("existing entries should resolve exact")
	}
	if resolved[2].Confidence != types.ResolutionUnresolved {
		t.Errorf("missing entry confidence = %q, want unresolved", resolved[2].Confidence)
	}
	// Every sub-citation keeps the original marker span.
	for i, rc := range resolved {
		if rc.Marker.StartOffset != 10 || rc.Marker.EndOffset != 16 {
			t.Errorf("resolution[%d] lost the marker span: %+v", i, rc.Marker)
		}
	}
}

const apaBib = `
Smith, A. B. (2020). Deep learning for citations. Journal.
Jones, C. (2019). Reference parsing. CIKM.
Lee, K. (2021a). Neural segmentation. ACL.
Lee, K. (2021b). Neural topics. EMNLP.
`

func TestResolveAuthorYearExact(t *testing.T) {
	idx := buildIndex(t, apaBib)

	rc := Resolve(marker("Smith, 2020"), idx)[0]
	if rc.Confidence != types.ResolutionExact {
		t.Fatalf("confidence = %q, want exact", rc.Confidence)
	}
	if rc.Reference.Key != "smith2020" {
		t.Errorf("reference key = %q, want smith2020", rc.Reference.Key)
	}
}

func TestResolveEtAl(t *testing.T) {
	idx := buildIndex(t, apaBib)

	rc := Resolve(marker("Smith et al., 2020"), idx)[0]
	if rc.Confidence != types.ResolutionExact {
		t.Errorf("confidence = %q, want exact", rc.Confidence)
	}
}

func TestResolveSuffixNarrowing(t *testing.T) {
	idx := buildIndex(t, apaBib)

	rc := Resolve(marker("Lee, 2021b"), idx)[0]
	if rc.Confidence != types.ResolutionExact {
		t.Fatalf("confidence = %q, want exact", rc.Confidence)
	}
	if rc.Reference.Key != "lee2021b" {
		t.Errorf("reference key = %q, want lee2021b", rc.Reference.Key)
	}
}

func TestResolveAmbiguousWithoutSuffix(t *testing.T) {
	idx := buildIndex(t, apaBib)

	// Two Lee 2021 entries and no suffix in the marker: first by document
	// order wins, the competitor is recorded.
	rc := Resolve(marker("Lee, 2021"), idx)[0]
	if rc.Confidence != types.ResolutionFuzzy {
		t.Fatalf("confidence = %q, want fuzzy", rc.Confidence)
	}
	if rc.Reference.Key != "lee2021a" {
		t.Errorf("reference key = %q, want lee2021a", rc.Reference.Key)
	}
	if len(rc.Ambiguity) != 1 || rc.Ambiguity[0] != "lee2021b" {
		t.Errorf("ambiguity = %v, want [lee2021b]", rc.Ambiguity)
	}
}

func TestResolveFuzzySurname(t *testing.T) {
	idx := buildIndex(t, apaBib)

	// OCR-mangled surname within edit distance.
	rc := Resolve(marker("Smth, 2020"), idx)[0]
	if rc.Confidence != types.ResolutionFuzzy {
		t.Fatalf("confidence = %q, want fuzzy", rc.Confidence)
	}
	if rc.Reference.Key != "smith2020" {
		t.Errorf("reference key = %q, want smith2020", rc.Reference.Key)
	}
}

func TestResolveUnknownAuthorStaysUnresolved(t *testing.T) {
	idx := buildIndex(t, apaBib)

	rc := Resolve(marker("Doe, 1999"), idx)[0]
	if rc.Confidence != types.ResolutionUnresolved {
		t.Errorf("confidence = %q, want unresolved", rc.Confidence)
	}
	if rc.Reference != nil {
		t.Errorf("reference = %+v, want nil", rc.Reference)
	}
}

func TestResolveMalformedKey(t *testing.T) {
	idx := buildIndex(t, apaBib)

	rc := Resolve(marker("no year here"), idx)[0]
	if rc.Confidence != types.ResolutionUnresolved {
		t.Errorf("confidence = %q, want unresolved", rc.Confidence)
	}
}

func TestSplitAuthorYearKey(t *testing.T) {
	tests := []struct {
		key     string
		surname string
		year    int
		suffix  string
	}{
		{"Smith, 2020", "smith", 2020, ""},
		{"Smith et al., 2021a", "smith", 2021, "a"},
		{"Jones and Lee, 2019", "jones", 2019, ""},
		{"O'Brien, 2018", "obrien", 2018, ""},
		{"garbage", "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			surname, year, suffix := splitAuthorYearKey(tt.key)
			if surname != tt.surname || year != tt.year || suffix != tt.suffix {
				t.Errorf("splitAuthorYearKey(%q) = (%q, %d, %q), want (%q, %d, %q)",
					tt.key, surname, year, suffix, tt.surname, tt.year, tt.suffix)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"smith", "smith", 1.0},
		{"smith", "smth", 0.8},
		{"", "", 1.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"smith", "smyth", 1},
	}
	for _, tt := range tests {
		if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
