package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sedori/internal/alerts"
	"sedori/internal/logging"
	"sedori/internal/preflight"
	"sedori/internal/services"
	"sedori/internal/similarity"
)

type compareOptions struct {
	sourcePath     string
	sourceTitle    string
	sourceLink     string
	sourcePrice    float64
	candidatesPath string
	jsonOutput     bool
	ingest         bool
	debug          bool
}

// candidateEntry is one record in a candidates file. Image paths are
// resolved relative to the file.
type candidateEntry struct {
	similarity.Listing
	Image string `json:"image"`
}

type compareReport struct {
	RunID    string                        `json:"run_id,omitempty"`
	Results  []similarity.ComparisonResult `json:"results"`
	Failures []compareFailure              `json:"failures"`
	Created  []int64                       `json:"created,omitempty"`
}

type compareFailure struct {
	CandidateID string `json:"candidate_id"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score candidate listings against a source listing",
		Long: "Compare a source listing image against every candidate in a JSON file.\n" +
			"The candidates file holds an array of objects with id, title, link, price,\n" +
			"currency, sold_date, thumbnail_url and image (a path relative to the file).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sourcePath, "source", "", "Source listing image")
	cmd.Flags().StringVar(&opts.sourceTitle, "source-title", "", "Source listing title")
	cmd.Flags().StringVar(&opts.sourceLink, "source-link", "", "Source listing URL")
	cmd.Flags().Float64Var(&opts.sourcePrice, "source-price", 0, "Source price in the source currency")
	cmd.Flags().StringVar(&opts.candidatesPath, "candidates", "", "JSON file describing candidate listings")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Emit results as JSON")
	cmd.Flags().BoolVar(&opts.ingest, "ingest", false, "Create alerts for qualifying results")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Write normalized images and scores to the debug directory")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("source-price")
	_ = cmd.MarkFlagRequired("candidates")
	return cmd
}

func runCompare(cmd *cobra.Command, ctx *commandContext, opts compareOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.ensureLogger()
	notifier := ctx.notifier()

	if failed := preflight.Failed(preflight.DirectoryChecks(cfg)); len(failed) > 0 {
		return fmt.Errorf("preflight: %s %s", failed[0].Name, failed[0].Detail)
	}

	engineCfg, err := similarity.ConfigFrom(cfg)
	if err != nil {
		return err
	}

	sourceImage, err := filepath.Abs(opts.sourcePath)
	if err != nil {
		return fmt.Errorf("resolve source image: %w", err)
	}
	source := similarity.Source{
		Listing: similarity.Listing{
			ID:       filepath.Base(opts.sourcePath),
			Title:    opts.sourceTitle,
			Link:     opts.sourceLink,
			Price:    opts.sourcePrice,
			Currency: cfg.Profit.SourceCurrency,
		},
		Image: similarity.ImageRef{Path: sourceImage},
	}
	candidates, err := loadCandidates(opts.candidatesPath)
	if err != nil {
		return err
	}

	var engineOpts []similarity.Option
	if opts.debug || cfg.Matching.Debug {
		if err := os.MkdirAll(cfg.Paths.DebugDir, 0o755); err != nil {
			return fmt.Errorf("create debug dir: %w", err)
		}
		engineOpts = append(engineOpts, similarity.WithObserver(similarity.NewDirObserver(cfg.Paths.DebugDir)))
	}
	engine := similarity.NewEngine(logger, engineOpts...)

	started := time.Now()
	outcomes, batchErr := engine.CompareBatch(cmd.Context(), source, candidates, engineCfg)
	if outcomes == nil && batchErr != nil {
		_ = notifier.NotifyError(cmd.Context(), batchErr, "comparison")
		return batchErr
	}

	report := compareReport{Results: []similarity.ComparisonResult{}, Failures: []compareFailure{}}
	for _, outcome := range outcomes {
		if outcome.OK() {
			report.Results = append(report.Results, outcome.Result)
			continue
		}
		report.Failures = append(report.Failures, compareFailure{
			CandidateID: outcome.CandidateID,
			Kind:        services.Kind(outcome.Err),
			Error:       outcome.Err.Error(),
		})
	}
	_ = notifier.NotifyBatchCompleted(cmd.Context(), len(outcomes), len(report.Failures), time.Since(started))

	if opts.ingest && len(report.Results) > 0 && batchErr == nil {
		created, err := ingestResults(cmd, ctx, report.Results, engineCfg.Thresholds)
		if err != nil {
			return err
		}
		report.Created = created
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printCompareReport(cmd, report, engineCfg.Thresholds)
	}
	if batchErr != nil {
		logging.WarnWithContext(logger, "comparison interrupted", "compare_interrupted",
			logging.Error(batchErr),
			logging.String(logging.FieldImpact, "remaining candidates were not scored"),
		)
	}
	return batchErr
}

func loadCandidates(path string) ([]similarity.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var entries []candidateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, errors.New("candidates file is empty")
	}
	base := filepath.Dir(path)
	candidates := make([]similarity.Candidate, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = fmt.Sprintf("candidate-%d", i+1)
		}
		image := strings.TrimSpace(entry.Image)
		if image != "" && !filepath.IsAbs(image) {
			image = filepath.Join(base, image)
		}
		candidates = append(candidates, similarity.Candidate{
			Listing: entry.Listing,
			Image:   similarity.ImageRef{Path: image},
		})
	}
	return candidates, nil
}

const verdictAlert = "alert"

var compareColumns = []column{
	{"Candidate", alignLeft},
	{"Title", alignLeft},
	{"Similarity", alignRight},
	{"Margin %", alignRight},
	{"Profit", alignRight},
	{"Verdict", alignLeft},
}

func printCompareReport(cmd *cobra.Command, report compareReport, thresholds similarity.Thresholds) {
	out := cmd.OutOrStdout()
	results := append([]similarity.ComparisonResult(nil), report.Results...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		verdict := "-"
		if alerts.Qualifies(r, thresholds) {
			verdict = verdictAlert
		} else if r.Matched {
			verdict = "match"
		}
		rows = append(rows, []string{
			r.CandidateID,
			truncate(r.Candidate.Title, 40),
			formatPercent(r.SimilarityScore),
			formatPercent(r.EstimatedProfitMargin),
			fmt.Sprintf("%.2f %s", r.EstimatedProfitAmount, r.Candidate.Currency),
			verdict,
		})
	}
	if len(rows) > 0 {
		fmt.Fprint(out, renderTable(compareColumns, rows, tableOptions{
			highlight: func(row []string) bool { return row[len(row)-1] == verdictAlert },
			colorize:  shouldColorize(out),
		}))
	} else {
		fmt.Fprintln(out, "No candidates were scored")
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "Candidate %s failed (%s): %s\n", f.CandidateID, f.Kind, f.Error)
	}
	if len(report.Created) > 0 {
		fmt.Fprintf(out, "Created %d alert(s): %s\n", len(report.Created), joinIDs(report.Created))
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
