// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refindex

import (
	"errors"
	"strings"
	"testing"
)

const numberedBib = `
[1] Smith, A., and Jones, B. Deep learning for citation analysis. Journal of Documentation, 2020.
[2] Brown, C. A survey of reference parsing. In Proceedings of CIKM, 2019.
[3] Lee, K. Neural text segmentation. ACL, 2021.
`

const apaBib = `
Smith, A. B. (2020). Deep learning for citation analysis. Journal of Documentation.
Jones, C., and Brown, D. (2019). A survey of reference parsing. CIKM.
Lee, K. (2021a). Neural text segmentation. ACL.
Lee, K. (2021b). Neural topic models. EMNLP.
`

func TestBuildNumbered(t *testing.T) {
	idx, err := Build(numberedBib)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("got %d entries, want 3", idx.Len())
	}

	e1 := idx.ByNumber(1)
	if e1 == nil {
		t.Fatal("ByNumber(1) = nil")
	}
	if e1.Key != "1" {
		t.Errorf("entry 1 key = %q, want %q", e1.Key, "1")
	}
	if e1.Year != 2020 {
		t.Errorf("entry 1 year = %d, want 2020", e1.Year)
	}
	if len(e1.Authors) != 2 || e1.Authors[0] != "Smith, A." {
		t.Errorf("entry 1 authors = %v, want [Smith, A. | Jones, B.]", e1.Authors)
	}

	if idx.ByNumber(4) != nil {
		t.Error("ByNumber(4) should be nil")
	}
}

func TestBuildAuthorYear(t *testing.T) {
	idx, err := Build(apaBib)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 4 {
		t.Fatalf("got %d entries, want 4", idx.Len())
	}

	smith := idx.ByKey("smith2020")
	if smith == nil {
		t.Fatal(`ByKey("smith2020") = nil`)
	}
	if smith.Title != "Deep learning for citation analysis" {
		t.Errorf("title = %q", smith.Title)
	}

	// Same-surname same-year entries keep distinct suffixed keys.
	if idx.ByKey("lee2021a") == nil || idx.ByKey("lee2021b") == nil {
		t.Error("lee2021a and lee2021b should both exist")
	}
	if idx.ByKey("lee2021a").Suffix != "a" {
		t.Errorf("lee2021a suffix = %q, want %q", idx.ByKey("lee2021a").Suffix, "a")
	}

	candidates := idx.ByAuthorYear("Lee", 2021)
	if len(candidates) != 2 {
		t.Fatalf("ByAuthorYear(Lee, 2021) returned %d candidates, want 2", len(candidates))
	}
	// Document order.
	if candidates[0].Suffix != "a" || candidates[1].Suffix != "b" {
		t.Errorf("candidates out of document order: %q, %q", candidates[0].Suffix, candidates[1].Suffix)
	}
}

func TestBuildMixedFormat(t *testing.T) {
	// Some documents list unnumbered entries ahead of the numbered block.
	// They belong to the bibliography and must stay addressable.
	text := `
Nguyen, T. (2018). Parsing mixed bibliographies. JASIST.

[1] Smith, A., and Jones, B. Deep learning for citation analysis. Journal of Documentation, 2020.
[2] Brown, C. A survey of reference parsing. In Proceedings of CIKM, 2019.
`
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("got %d entries, want 3", idx.Len())
	}

	nguyen := idx.ByKey("nguyen2018")
	if nguyen == nil {
		t.Fatal(`ByKey("nguyen2018") = nil`)
	}
	if nguyen.Year != 2018 {
		t.Errorf("year = %d, want 2018", nguyen.Year)
	}
	if nguyen.Title != "Parsing mixed bibliographies" {
		t.Errorf("title = %q", nguyen.Title)
	}
	if got := idx.ByAuthorYear("Nguyen", 2018); len(got) != 1 {
		t.Errorf("ByAuthorYear(Nguyen, 2018) returned %d candidates, want 1", len(got))
	}

	if idx.ByNumber(1) == nil || idx.ByNumber(2) == nil {
		t.Error("numbered entries should still resolve by number")
	}
}

func TestBuildMixedFormatKeepsUnparseableLead(t *testing.T) {
	text := "Selected readings and notes\n\n[1] Smith, A. Deep learning. Journal, 2020.\n"
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("got %d entries, want 2", idx.Len())
	}

	lead := idx.ByKey("entry-1")
	if lead == nil {
		t.Fatal(`ByKey("entry-1") = nil`)
	}
	if lead.RawText != "Selected readings and notes" {
		t.Errorf("raw text = %q", lead.RawText)
	}
}

func TestBuildSkipsHeading(t *testing.T) {
	text := "7. References\n" + numberedBib
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 3 {
		t.Errorf("got %d entries, want 3", idx.Len())
	}
}

func TestBuildTrimsToLastHeading(t *testing.T) {
	// A full-document tail can mention "references" in prose before the
	// actual section heading.
	text := "Body text discussing things.\n\nReferences\n" + apaBib
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("got %d entries, want 4", idx.Len())
	}
}

func TestBuildNoEntries(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"heading only", "References\n\n"},
		{"prose without entries", "This paragraph is not a bibliography.\nNeither is this one."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.text)
			if !errors.Is(err, ErrNoEntries) {
				t.Errorf("Build(%q) err = %v, want ErrNoEntries", tt.text, err)
			}
		})
	}
}

func TestBuildUnparseableEntryRetained(t *testing.T) {
	text := "[1] Smith, A. Good entry. Journal, 2020.\n[2] ~~~ mangled OCR output ~~~\n"
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("got %d entries, want 2", idx.Len())
	}
	e2 := idx.ByNumber(2)
	if e2 == nil {
		t.Fatal("mangled entry dropped")
	}
	if !strings.Contains(e2.RawText, "mangled") {
		t.Errorf("raw text not retained: %q", e2.RawText)
	}
}

func TestDuplicateKeysStayUnique(t *testing.T) {
	text := `
Smith, A. (2020). First paper. Venue.

Smith, A. (2020). Second paper. Venue.
`
	idx, err := Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("got %d entries, want 2", idx.Len())
	}
	if idx.Entries()[0].Key == idx.Entries()[1].Key {
		t.Errorf("duplicate keys: %q", idx.Entries()[0].Key)
	}
}

func TestNormalizeSurname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith", "smith"},
		{"O'Brien", "obrien"},
		{"van der Berg", "vanderberg"},
		{"MÜLLER", "mller"},
		{"Garcia-Lopez", "garcialopez"},
	}
	for _, tt := range tests {
		if got := NormalizeSurname(tt.in); got != tt.want {
			t.Errorf("NormalizeSurname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLeadSurname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith, A. B.", "smith"},
		{"van der Berg, A.", "vanderberg"},
		{"Smith", "smith"},
	}
	for _, tt := range tests {
		if got := LeadSurname(tt.in); got != tt.want {
			t.Errorf("LeadSurname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  []string
	}{
		{
			name:  "two authors with and",
			block: "Smith, A., and Jones, B.",
			want:  []string{"Smith, A.", "Jones, B."},
		},
		{
			name:  "ampersand",
			block: "Smith, A. & Jones, B.",
			want:  []string{"Smith, A.", "Jones, B."},
		},
		{
			name:  "et al stripped",
			block: "Smith, A. et al.",
			want:  []string{"Smith, A."},
		},
		{
			name:  "single author multiple initials",
			block: "Smith, A. B.",
			want:  []string{"Smith, A. B."},
		},
		{
			name:  "empty",
			block: "",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAuthors(tt.block)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("author[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitOnPeriods(t *testing.T) {
	parts := splitOnPeriods("Smith, A. B. Deep learning. Journal of Things. 2020.")
	want := []string{"Smith, A. B. Deep learning", "Journal of Things", "2020"}
	if len(parts) != len(want) {
		t.Fatalf("got %v, want %v", parts, want)
	}
	for i := range parts {
		if parts[i] != want[i] {
			t.Errorf("part[%d] = %q, want %q", i, parts[i], want[i])
		}
	}
}
