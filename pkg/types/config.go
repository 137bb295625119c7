// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citation-decoder/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// WindowConfig holds settings for context window construction.
type WindowConfig struct {
	// SentenceRadius is the number of sentences included on each side of
	// the marker's own sentence. Zero means the marker's sentence alone;
	// the CLI default is 1.
	SentenceRadius int `json:"sentence_radius" yaml:"sentence_radius"`

	// MaxChars is the hard cap on window length (default 800). When the
	// window exceeds it, outermost sentences are trimmed first; the
	// marker's own sentence is always kept whole.
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// WithDefaults returns a copy with unset fields replaced by defaults.
func (c WindowConfig) WithDefaults() WindowConfig {
	if c.SentenceRadius < 0 {
		c.SentenceRadius = 0
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 800
	}
	return c
}

// ClassifierConfig holds settings for the citation classifier backend.
type ClassifierConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the classifier API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds transport-level retries on HTTP 429 (default 3).
	// The adapter itself makes exactly one classification attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineConfig groups the settings threaded through a pipeline run.
// Passed explicitly to Run; nothing is read from ambient state.
type PipelineConfig struct {
	Window     WindowConfig     `json:"window" yaml:"window"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`

	// Workers bounds concurrent in-flight classifier calls (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// RateLimit caps classifier calls per second across all workers
	// (default 2).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Timeout bounds the whole-document run. Zero means no timeout.
	// On expiry, completed analyses are returned as a partial report.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// FetchConfig holds settings for acquiring papers from arXiv.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PapersDir is the directory downloaded PDFs are written to.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// ReportStoreConfig holds settings for the report store.
type ReportStoreConfig struct {
	// Dir is the directory containing the SQLite database and exports.
	Dir string `json:"dir" yaml:"dir"`
}
