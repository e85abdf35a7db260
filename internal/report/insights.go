// Package report composes the current rule set and segmentation result into
// a persisted business-insights report.
package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/canastalabs/canasta/internal/model"
	"github.com/canastalabs/canasta/internal/rules"
	"github.com/canastalabs/canasta/internal/segment"
)

const (
	textFileName = "business_insights.txt"
	jsonFileName = "business_insights.json"

	topRulesInText = 20
)

// RuleSource supplies the mined rule set.
type RuleSource interface {
	Mine(ctx context.Context) (*rules.Result, error)
}

// Segmenter supplies the customer segmentation.
type Segmenter interface {
	Segment(ctx context.Context, opts segment.Options) (*model.SegmentationResult, error)
}

// Report is the structured insights payload plus the files it was written to.
type Report struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Segmentation *model.SegmentationResult `json:"segmentation"`
	Rules        []model.AssociationRule   `json:"rules"`
	RuleCount    int                       `json:"rule_count"`
	TextPath     string                    `json:"-"`
	JSONPath     string                    `json:"-"`
}

// Builder generates insights reports into the results directory.
type Builder struct {
	rules      RuleSource
	segments   Segmenter
	resultsDir string
	now        func() time.Time
}

// NewBuilder creates a report builder writing into resultsDir.
func NewBuilder(ruleSource RuleSource, segments Segmenter, resultsDir string) *Builder {
	return &Builder{
		rules:      ruleSource,
		segments:   segments,
		resultsDir: resultsDir,
		now:        time.Now,
	}
}

// Generate runs segmentation and rule mining, then writes the combined
// report as readable text and as structured JSON. Both engines serve from
// their caches when the underlying data has not refreshed.
func (b *Builder) Generate(ctx context.Context, opts segment.Options) (*Report, error) {
	seg, err := b.segments.Segment(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	mined, err := b.rules.Mine(ctx)
	if err != nil {
		return nil, fmt.Errorf("rule mining: %w", err)
	}

	if err := os.MkdirAll(b.resultsDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	rep := &Report{
		GeneratedAt:  b.now(),
		Segmentation: seg,
		Rules:        mined.Rules,
		RuleCount:    len(mined.Rules),
		TextPath:     filepath.Join(b.resultsDir, textFileName),
		JSONPath:     filepath.Join(b.resultsDir, jsonFileName),
	}

	if err := b.writeText(rep); err != nil {
		return nil, err
	}
	if err := b.writeJSON(rep); err != nil {
		return nil, err
	}

	slog.Info("Insights report generated",
		"clusters", seg.K,
		"rules", rep.RuleCount,
		"text", rep.TextPath,
		"json", rep.JSONPath)

	return rep, nil
}

func (b *Builder) writeText(rep *Report) error {
	f, err := os.Create(rep.TextPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", rep.TextPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "=== CUSTOMER SEGMENTATION SUMMARY ===")
	fmt.Fprintf(w, "Clusters: %d | Customers retained: %d | Outliers removed: %d\n\n",
		rep.Segmentation.K, rep.Segmentation.TotalCustomers, rep.Segmentation.OutliersRemoved)
	for _, cluster := range rep.Segmentation.Clusters {
		fmt.Fprintf(w, "Cluster %d (%d customers): %s\n", cluster.Index, cluster.Size, cluster.Description)
		for _, rec := range cluster.Recommendations {
			fmt.Fprintf(w, "   - %s\n", rec)
		}
	}

	fmt.Fprintf(w, "\n=== TOP %d ASSOCIATION RULES (by lift) ===\n", topRulesInText)
	fmt.Fprintln(w, "(Lift > 1 means the products are bought together more often than chance)")
	fmt.Fprintln(w)
	for i, rule := range rep.Rules {
		if i == topRulesInText {
			break
		}
		fmt.Fprintf(w, "%d. %s → %s [%s → %s]\n", i+1,
			rule.Antecedent, rule.Consequent, rule.AntecedentCategory, rule.ConsequentCategory)
		fmt.Fprintf(w, "   Lift: %.3f | Confidence: %.3f | Support: %.4f\n",
			rule.Lift, rule.Confidence, rule.Support)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", rep.TextPath, err)
	}
	return nil
}

func (b *Builder) writeJSON(rep *Report) error {
	payload, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(rep.JSONPath, payload, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", rep.JSONPath, err)
	}
	return nil
}
