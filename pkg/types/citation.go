// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared across pipeline stages.
package types

// Document is the pipeline input handed over by the document-extraction
// collaborator: page-ordered body text plus the bibliography slice. Section
// boundaries are best effort; BibliographyText may be the tail slice of the
// same full-text stream.
type Document struct {
	// Title identifies the host paper (best effort, may be empty).
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// BodyText is the page-ordered prose scanned for citation markers.
	BodyText string `json:"body_text" yaml:"body_text"`

	// BibliographyText is the reference-list text, possibly still carrying
	// its section heading.
	BibliographyText string `json:"bibliography_text" yaml:"bibliography_text"`
}

// ReferenceEntry is a parsed bibliography record. Entries are created once
// during reference index construction and never mutated afterwards.
type ReferenceEntry struct {
	// Key is the citation key, unique within a document. Numeric entries use
	// the entry number ("3"); author-year entries use a lowercase
	// surname-year slug ("smith2020", "lee2021a").
	Key string `json:"key" yaml:"key"`

	// Authors lists the cited work's authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year. Zero when the year could not be parsed.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Suffix is the disambiguating letter following the year ("a" in
	// "2021a"). Empty for entries without a suffix.
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`

	// Title is the cited work's title.
	Title string `json:"title" yaml:"title"`

	// RawText is the original bibliography line. Always populated, even for
	// entries whose structure could not be parsed.
	RawText string `json:"raw_text" yaml:"raw_text"`
}

// MarkerStyle identifies the syntactic form of an in-text citation marker.
// The style is fixed at scan time and never reinterpreted downstream.
type MarkerStyle string

const (
	// StyleAuthorYear covers parenthetical and narrative author-year markers
	// such as "(Smith, 2020)" or "Smith (2020)".
	StyleAuthorYear MarkerStyle = "author_year"

	// StyleNumeric covers single bracketed numbers such as "[3]".
	StyleNumeric MarkerStyle = "numeric"

	// StyleMixed covers list markers carrying more than one sub-citation,
	// such as "[1, 4]" or "(Smith, 2020; Jones, 2019)".
	StyleMixed MarkerStyle = "mixed"
)

// CitationMarker is an in-text citation token located in the body text.
// Marker spans never overlap; the scanner emits them disjointly in
// start-offset order.
type CitationMarker struct {
	// RawText is the marker exactly as it appears, e.g. "(Smith, 2020)" or "[3]".
	RawText string `json:"raw_text" yaml:"raw_text"`

	// StartOffset and EndOffset delimit the marker's span in the body text
	// (byte offsets, half-open interval).
	StartOffset int `json:"start_offset" yaml:"start_offset"`
	EndOffset   int `json:"end_offset" yaml:"end_offset"`

	// Style is the marker's syntactic form, decided once at scan time.
	Style MarkerStyle `json:"style" yaml:"style"`

	// CandidateKeys holds every key-like token extracted from the raw text
	// ("Smith, 2020" or "3"), to be resolved downstream. The scanner never
	// consults the reference index.
	CandidateKeys []string `json:"candidate_keys" yaml:"candidate_keys"`
}

// ResolutionConfidence grades how a marker was matched to a reference entry.
type ResolutionConfidence string

const (
	ResolutionExact      ResolutionConfidence = "exact"
	ResolutionFuzzy      ResolutionConfidence = "fuzzy"
	ResolutionUnresolved ResolutionConfidence = "unresolved"
)

// ResolvedCitation links one sub-citation of a marker to a reference entry.
// When Confidence is ResolutionUnresolved, Reference is nil.
type ResolvedCitation struct {
	// Marker is the scanned marker this resolution belongs to. List markers
	// produce one ResolvedCitation per sub-citation, all sharing the span.
	Marker CitationMarker `json:"marker" yaml:"marker"`

	// Key is the candidate key this resolution covers ("3", "Smith, 2020").
	Key string `json:"key" yaml:"key"`

	// Reference is the matched bibliography entry, or nil when unresolved.
	Reference *ReferenceEntry `json:"reference,omitempty" yaml:"reference,omitempty"`

	// Confidence grades the match.
	Confidence ResolutionConfidence `json:"confidence" yaml:"confidence"`

	// Ambiguity lists the keys of other entries that also matched, for
	// fuzzy resolutions picked first-by-document-order.
	Ambiguity []string `json:"ambiguity,omitempty" yaml:"ambiguity,omitempty"`
}

// ContextWindow is the bounded prose span surrounding a marker, used as
// classifier input. The text always contains the marker's full span and is
// truncated at sentence boundaries, never mid-word.
type ContextWindow struct {
	// Text is the window content.
	Text string `json:"text" yaml:"text"`

	// SentenceCount is the number of sentences included in Text.
	SentenceCount int `json:"sentence_count" yaml:"sentence_count"`

	// MarkerAt is the offset of the marker within Text.
	MarkerAt int `json:"marker_at" yaml:"marker_at"`
}

// CitationPurpose classifies why a work was cited.
type CitationPurpose string

const (
	PurposeSupportingEvidence CitationPurpose = "supporting_evidence"
	PurposeContrast           CitationPurpose = "contrast"
	PurposeBackground         CitationPurpose = "background"
	PurposeMethodology        CitationPurpose = "methodology"
	PurposeOther              CitationPurpose = "other"
	PurposeUnknown            CitationPurpose = "unknown"
)

// CitationStance classifies the citing authors' attitude toward the cited work.
type CitationStance string

const (
	StanceAgree    CitationStance = "agree"
	StanceCritique CitationStance = "critique"
	StanceExtend   CitationStance = "extend"
	StanceNeutral  CitationStance = "neutral"
	StanceUnknown  CitationStance = "unknown"
)

// CitationAnalysis is the classifier's structured verdict for one citation
// occurrence. Every field is populated; fields the classifier omitted are
// set to the unknown value rather than left empty.
type CitationAnalysis struct {
	// Contribution is a free-text summary of what the cited work contributes.
	Contribution string `json:"contribution" yaml:"contribution"`

	// Purpose is the rhetorical role of the citation.
	Purpose CitationPurpose `json:"purpose" yaml:"purpose"`

	// Stance is the citing authors' attitude toward the cited work.
	Stance CitationStance `json:"stance" yaml:"stance"`

	// Confidence is the classifier-reported certainty in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// AnalysisStatus records whether classification succeeded for an occurrence.
type AnalysisStatus string

const (
	AnalysisOK     AnalysisStatus = "ok"
	AnalysisFailed AnalysisStatus = "failed"
)

// CitationOccurrence is one analyzed citation occurrence in the final report.
type CitationOccurrence struct {
	// MarkerText is the in-text marker as scanned.
	MarkerText string `json:"marker_text" yaml:"marker_text"`

	// Key is the candidate key the resolver worked from ("3", "Doe, 1999").
	// It tells apart sub-citations of one list marker that share the
	// unresolved bucket.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// StartOffset is the marker's position in the body text.
	StartOffset int `json:"start_offset" yaml:"start_offset"`

	// Context is the window text the classifier saw.
	Context string `json:"context" yaml:"context"`

	// MarkerAt is the marker's offset within Context.
	MarkerAt int `json:"marker_at" yaml:"marker_at"`

	// Resolution grades how the marker was matched to its reference.
	Resolution ResolutionConfidence `json:"resolution" yaml:"resolution"`

	// Ambiguity lists competing reference keys for fuzzy resolutions.
	Ambiguity []string `json:"ambiguity,omitempty" yaml:"ambiguity,omitempty"`

	// Status is AnalysisFailed when the classifier call failed; the analysis
	// fields then hold unknown values and zero confidence.
	Status AnalysisStatus `json:"status" yaml:"status"`

	// Analysis is the classifier verdict.
	Analysis CitationAnalysis `json:"analysis" yaml:"analysis"`
}

// UnresolvedKey is the report bucket for markers with no matched reference.
const UnresolvedKey = "unresolved"

// ReportSummary tallies occurrences by purpose and stance across the report.
type ReportSummary struct {
	Total      int                     `json:"total" yaml:"total"`
	Resolved   int                     `json:"resolved" yaml:"resolved"`
	Unresolved int                     `json:"unresolved" yaml:"unresolved"`
	Failed     int                     `json:"failed" yaml:"failed"`
	ByPurpose  map[CitationPurpose]int `json:"by_purpose" yaml:"by_purpose"`
	ByStance   map[CitationStance]int  `json:"by_stance" yaml:"by_stance"`
}

// CitationReport is the per-document output of the pipeline: occurrences
// grouped by reference key, each occurrence analyzed independently. The
// report is read-only after the pipeline completes.
type CitationReport struct {
	// PaperTitle identifies the host paper (best effort, may be empty).
	PaperTitle string `json:"paper_title,omitempty" yaml:"paper_title,omitempty"`

	// Citations maps each reference key to its occurrences, ordered by
	// start offset. Markers with no matched reference appear under
	// UnresolvedKey.
	Citations map[string][]CitationOccurrence `json:"citations" yaml:"citations"`

	// References holds the bibliography entries cited at least once,
	// keyed by citation key.
	References map[string]ReferenceEntry `json:"references" yaml:"references"`

	// Summary tallies occurrences by purpose and stance.
	Summary ReportSummary `json:"summary" yaml:"summary"`
}
