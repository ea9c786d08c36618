package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sedori/internal/alerts"
	"sedori/internal/similarity"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:     "alerts",
		Aliases: []string{"alert"},
		Short:   "Inspect and manage tracked alerts",
	}

	alertsCmd.AddCommand(newAlertsListCommand(ctx))
	alertsCmd.AddCommand(newAlertsShowCommand(ctx))
	alertsCmd.AddCommand(newAlertsTransitionCommand(ctx))
	alertsCmd.AddCommand(newAlertsDeleteCommand(ctx))
	alertsCmd.AddCommand(newAlertsIngestCommand(ctx))
	alertsCmd.AddCommand(newAlertsStatsCommand(ctx))

	return alertsCmd
}

func newAlertsListCommand(ctx *commandContext) *cobra.Command {
	var stateFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseStates(stateFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(store *alerts.Store) error {
				items := store.List(states...)
				if jsonOutput {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No alerts")
					return nil
				}
				colorize := shouldColorize(out)
				fmt.Fprint(out, renderTable(alertColumns, buildAlertRows(items, colorize), tableOptions{
					footer:   []string{"", fmt.Sprintf("%d alert(s)", len(items))},
					colorize: colorize,
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stateFlags, "state", "s", nil, "Filter by state (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit alerts as JSON")
	return cmd
}

var alertColumns = []column{
	{"ID", alignRight},
	{"State", alignLeft},
	{"Source", alignLeft},
	{"Candidate", alignLeft},
	{"Similarity", alignRight},
	{"Margin %", alignRight},
	{"Buy", alignRight},
	{"Sold", alignRight},
	{"Updated", alignLeft},
}

func buildAlertRows(items []alerts.Alert, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			stateLabel(item.State, colorize),
			truncate(orDash(item.SourceTitle), 32),
			truncate(orDash(item.CandidateTitle), 32),
			formatPercent(item.Similarity),
			formatPercent(item.ProfitMargin),
			item.SourcePrice.String(),
			item.CandidatePrice.String(),
			formatDisplayTime(item.UpdatedAt),
		})
	}
	return rows
}

func newAlertsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show ID...",
		Short: "Show alert details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(store *alerts.Store) error {
				ids = uniqueIDs(ids)
				items := store.GetMany(ids)
				missing := len(ids) - len(items)
				if jsonOutput {
					if err := writeJSON(cmd, items); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					for i, item := range items {
						if i > 0 {
							fmt.Fprintln(out)
						}
						printAlertDetail(out, item, colorize)
					}
				}
				if missing > 0 {
					return fmt.Errorf("%d alert(s) not found", missing)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit alerts as JSON")
	return cmd
}

func printAlertDetail(out io.Writer, item alerts.Alert, colorize bool) {
	fmt.Fprintf(out, "Alert %d [%s]\n", item.ID, stateLabel(item.State, colorize))
	fmt.Fprintf(out, "  Source:      %s\n", orDash(item.SourceTitle))
	fmt.Fprintf(out, "               %s\n", orDash(item.SourceLink))
	fmt.Fprintf(out, "  Candidate:   %s\n", orDash(item.CandidateTitle))
	fmt.Fprintf(out, "               %s\n", orDash(item.CandidateLink))
	fmt.Fprintf(out, "  Similarity:  %s\n", formatPercent(item.Similarity))
	fmt.Fprintf(out, "  Margin:      %s%%\n", formatPercent(item.ProfitMargin))
	fmt.Fprintf(out, "  Buy price:   %s\n", item.SourcePrice)
	fmt.Fprintf(out, "  Sold price:  %s\n", item.CandidatePrice)
	fmt.Fprintf(out, "  Shipping:    %s\n", item.ShippingCost)
	fmt.Fprintf(out, "  Sold date:   %s\n", orDash(item.SoldDate))
	fmt.Fprintf(out, "  Thumbnail:   %s\n", orDash(item.ThumbnailURL))
	fmt.Fprintf(out, "  Created:     %s\n", formatDisplayTime(item.CreatedAt))
	fmt.Fprintf(out, "  Updated:     %s\n", formatDisplayTime(item.UpdatedAt))
	if next := alerts.LegalNext(item.State); len(next) > 0 {
		labels := make([]string, len(next))
		for i, s := range next {
			labels[i] = string(s)
		}
		fmt.Fprintf(out, "  Next:        %s\n", strings.Join(labels, ", "))
	}
}

func newAlertsTransitionCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transition STATE ID...",
		Short: "Move alerts to a new workflow state",
		Long: "Move one or more alerts to STATE. A single id always follows the workflow\n" +
			"graph one step at a time; several ids use workflow.bulk_transition_policy.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, ok := alerts.ParseState(args[0])
			if !ok {
				return fmt.Errorf("unknown state %q (valid: %s)", args[0], stateNames())
			}
			ids, err := parsePositiveIDs(args[1:])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(store *alerts.Store) error {
				var report alerts.BulkReport
				if len(ids) == 1 {
					if _, err := store.Transition(cmd.Context(), ids[0], state); err != nil {
						report.Failed = append(report.Failed, alerts.BulkFailure{ID: ids[0], Err: err})
					} else {
						report.Succeeded = ids
					}
				} else {
					report = store.BulkTransition(cmd.Context(), ids, state)
				}
				return finishBulk(cmd, report, jsonOutput, fmt.Sprintf("moved to %s", state))
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the per-id report as JSON")
	return cmd
}

func newAlertsDeleteCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete alerts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(store *alerts.Store) error {
				report := store.BulkDelete(cmd.Context(), ids)
				return finishBulk(cmd, report, jsonOutput, "deleted")
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the per-id report as JSON")
	return cmd
}

// finishBulk prints the per-id outcome and turns any failure into a
// non-zero exit.
func finishBulk(cmd *cobra.Command, report alerts.BulkReport, jsonOutput bool, verb string) error {
	if jsonOutput {
		if err := writeJSON(cmd, bulkReportJSON(report)); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, id := range report.Succeeded {
			fmt.Fprintf(out, "Alert %d %s\n", id, verb)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(out, "Alert %d: %v\n", f.ID, f.Err)
		}
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d operations failed", len(report.Failed), len(report.Failed)+len(report.Succeeded))
	}
	return nil
}

func newAlertsIngestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest RESULTS.json",
		Short: "Create alerts from saved comparison results",
		Long: "Read the output of 'sedori compare --json' (or a bare array of results)\n" +
			"and create a pending alert for each result that clears the configured thresholds.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engineCfg, err := similarity.ConfigFrom(cfg)
			if err != nil {
				return err
			}
			results, err := readResults(args[0])
			if err != nil {
				return err
			}
			created, err := ingestResults(cmd, ctx, results, engineCfg.Thresholds)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintf(out, "No results qualified (%d read)\n", len(results))
				return nil
			}
			fmt.Fprintf(out, "Created %d alert(s): %s\n", len(created), joinIDs(created))
			return nil
		},
	}
	return cmd
}

func readResults(path string) ([]similarity.ComparisonResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("results file is empty")
	}
	if trimmed[0] == '[' {
		var results []similarity.ComparisonResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("parse results: %w", err)
		}
		return results, nil
	}
	var report compareReport
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return report.Results, nil
}

// ingestResults creates alerts and sends one notification for the batch.
func ingestResults(cmd *cobra.Command, ctx *commandContext, results []similarity.ComparisonResult, thresholds similarity.Thresholds) ([]int64, error) {
	var created []int64
	var best alerts.Alert
	err := ctx.withStore(cmd, func(store *alerts.Store) error {
		ids, err := store.CreateFromComparisons(cmd.Context(), results, thresholds)
		if err != nil {
			return err
		}
		created = ids
		for _, item := range store.GetMany(ids) {
			if item.Similarity > best.Similarity {
				best = item
			}
		}
		return nil
	})
	notifier := ctx.notifier()
	if err != nil {
		_ = notifier.NotifyError(cmd.Context(), err, "alert ingestion")
		return nil, err
	}
	if len(created) > 0 {
		_ = notifier.NotifyAlertsIngested(cmd.Context(), len(created), best)
	}
	return created, nil
}

func newAlertsStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count alerts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(store *alerts.Store) error {
				stats := store.Stats()
				if jsonOutput {
					byState := make(map[string]int, len(stats.ByState))
					for state, count := range stats.ByState {
						byState[string(state)] = count
					}
					return writeJSON(cmd, map[string]any{
						"total":    stats.Total,
						"by_state": byState,
						"next_id":  stats.NextID,
					})
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(stats.ByState)+1)
				for _, state := range alerts.AllStates() {
					rows = append(rows, []string{stateLabel(state, colorize), fmt.Sprintf("%d", stats.ByState[state])})
				}
				fmt.Fprint(out, renderTable(
					[]column{{"State", alignLeft}, {"Count", alignRight}},
					rows,
					tableOptions{footer: []string{"Total", fmt.Sprintf("%d", stats.Total)}, colorize: colorize},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit counts as JSON")
	return cmd
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
