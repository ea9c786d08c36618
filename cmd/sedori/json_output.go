package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"sedori/internal/alerts"
	"sedori/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type jsonFailure struct {
	ID    int64  `json:"id,omitempty"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type jsonBulkReport struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []jsonFailure `json:"failed"`
}

func bulkReportJSON(report alerts.BulkReport) jsonBulkReport {
	out := jsonBulkReport{Succeeded: report.Succeeded, Failed: []jsonFailure{}}
	if out.Succeeded == nil {
		out.Succeeded = []int64{}
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, jsonFailure{ID: f.ID, Kind: services.Kind(f.Err), Error: f.Err.Error()})
	}
	return out
}
