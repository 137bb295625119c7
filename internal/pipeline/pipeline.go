// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the citation-analysis stages over one
// document: index the bibliography, scan markers, resolve them, build
// context windows, classify concurrently, and assemble the report.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/citation-decoder/internal/classify"
	"github.com/pdiddy/citation-decoder/internal/refindex"
	"github.com/pdiddy/citation-decoder/internal/resolve"
	"github.com/pdiddy/citation-decoder/internal/scan"
	"github.com/pdiddy/citation-decoder/internal/window"
	"github.com/pdiddy/citation-decoder/pkg/types"
)

const (
	defaultWorkers   = 4
	defaultRateLimit = 2.0
)

// task is one deduplicated citation occurrence awaiting classification.
type task struct {
	reportKey string
	citation  types.ResolvedCitation
	win       types.ContextWindow
}

// outcome is the classification result slot for one task. Workers write
// into per-task slots so completion order never leaks into report order.
type outcome struct {
	status   types.AnalysisStatus
	analysis types.CitationAnalysis
}

// Run executes the whole pipeline for one document. Structural failures
// (unparseable bibliography, scan failure) abort the run; per-citation
// failures are recorded inline and never affect sibling citations.
//
// When cfg.Timeout elapses mid-run, in-flight classifier calls are
// cancelled cooperatively and the completed analyses are returned as a
// partial report alongside the context error.
func Run(ctx context.Context, doc types.Document, backend classify.Backend, cfg types.PipelineConfig, logger *zap.Logger) (*types.CitationReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	idx, err := refindex.Build(doc.BibliographyText)
	if err != nil {
		return nil, fmt.Errorf("building reference index: %w", err)
	}

	markers, err := scan.Scan(doc.BodyText)
	if err != nil {
		return nil, fmt.Errorf("scanning body text: %w", err)
	}

	logger.Info("document scanned",
		zap.Int("references", idx.Len()),
		zap.Int("markers", len(markers)))

	tasks := buildTasks(markers, idx, doc.BodyText, cfg.Window, logger)

	results := classifyAll(ctx, backend, tasks, doc.Title, cfg, logger)

	report := assemble(doc.Title, tasks, results)

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("run cancelled, returning partial report", zap.Error(ctxErr))
		return report, ctxErr
	}
	return report, nil
}

// buildTasks resolves every marker, deduplicates occurrences by
// (reference key, start offset) with the candidate key added for the
// unresolved bucket, and attaches each one's context window.
// Visible markers are never dropped: unresolved citations get the
// synthetic unresolved bucket, and a window-construction failure falls
// back to the marker's raw text.
func buildTasks(markers []types.CitationMarker, idx *refindex.Index, bodyText string, winCfg types.WindowConfig, logger *zap.Logger) []task {
	seen := make(map[string]bool)
	var tasks []task

	for _, m := range markers {
		for _, rc := range resolve.Resolve(m, idx) {
			key := types.UnresolvedKey
			if rc.Reference != nil {
				key = rc.Reference.Key
			}

			dedup := fmt.Sprintf("%s@%d", key, m.StartOffset)
			if key == types.UnresolvedKey {
				// Unresolvable sub-citations of one list marker share the
				// bucket but cite distinct works.
				dedup = fmt.Sprintf("%s:%s@%d", key, rc.Key, m.StartOffset)
			}
			if seen[dedup] {
				continue
			}
			seen[dedup] = true

			win, err := window.Build(m, bodyText, winCfg)
			if err != nil {
				logger.Warn("window construction failed, using marker text",
					zap.String("marker", m.RawText), zap.Error(err))
				win = types.ContextWindow{Text: m.RawText, SentenceCount: 1, MarkerAt: 0}
			}

			tasks = append(tasks, task{reportKey: key, citation: rc, win: win})
		}
	}
	return tasks
}

// classifyAll dispatches classifier calls concurrently, bounded by
// cfg.Workers in-flight calls and cfg.RateLimit calls per second. Each
// failure is isolated to its own slot; one failed call never aborts the
// rest of the document.
func classifyAll(ctx context.Context, backend classify.Backend, tasks []task, paperTitle string, cfg types.PipelineConfig, logger *zap.Logger) []outcome {
	results := make([]outcome, len(tasks))
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				results[i] = outcome{status: types.AnalysisFailed, analysis: classify.FailedAnalysis()}
				return nil
			}

			analysis, err := classify.Analyze(gctx, backend, t.win, t.citation.Reference, paperTitle)
			if err != nil {
				logger.Warn("classification failed",
					zap.String("key", t.reportKey),
					zap.Int("offset", t.citation.Marker.StartOffset),
					zap.Error(err))
				results[i] = outcome{status: types.AnalysisFailed, analysis: classify.FailedAnalysis()}
				return nil
			}

			results[i] = outcome{status: types.AnalysisOK, analysis: analysis}
			return nil
		})
	}

	g.Wait()
	return results
}

// assemble groups classified occurrences under their reference keys,
// ordered by start offset within each key, and computes the summary.
func assemble(paperTitle string, tasks []task, results []outcome) *types.CitationReport {
	report := &types.CitationReport{
		PaperTitle: paperTitle,
		Citations:  make(map[string][]types.CitationOccurrence),
		References: make(map[string]types.ReferenceEntry),
		Summary: types.ReportSummary{
			ByPurpose: make(map[types.CitationPurpose]int),
			ByStance:  make(map[types.CitationStance]int),
		},
	}

	for i, t := range tasks {
		res := results[i]
		if res.status == "" {
			// Slot never ran (cancelled before dispatch).
			res = outcome{status: types.AnalysisFailed, analysis: classify.FailedAnalysis()}
		}

		occ := types.CitationOccurrence{
			MarkerText:  t.citation.Marker.RawText,
			Key:         t.citation.Key,
			StartOffset: t.citation.Marker.StartOffset,
			Context:     t.win.Text,
			MarkerAt:    t.win.MarkerAt,
			Resolution:  t.citation.Confidence,
			Ambiguity:   t.citation.Ambiguity,
			Status:      res.status,
			Analysis:    res.analysis,
		}

		report.Citations[t.reportKey] = append(report.Citations[t.reportKey], occ)
		if t.citation.Reference != nil {
			report.References[t.reportKey] = *t.citation.Reference
		}

		report.Summary.Total++
		if t.reportKey == types.UnresolvedKey {
			report.Summary.Unresolved++
		} else {
			report.Summary.Resolved++
		}
		if res.status == types.AnalysisFailed {
			report.Summary.Failed++
		}
		report.Summary.ByPurpose[res.analysis.Purpose]++
		report.Summary.ByStance[res.analysis.Stance]++
	}

	for key := range report.Citations {
		occs := report.Citations[key]
		sort.Slice(occs, func(a, b int) bool { return occs[a].StartOffset < occs[b].StartOffset })
	}

	return report
}
