// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dropin-tui/internal/agent"
)

// HealthReport is the data printed by `dropin health`.
type HealthReport struct {
	URL       string `json:"url"`
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	ErrorType string `json:"error_type,omitempty"`
}

func newHealthCommand(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the agent is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			out := cmd.OutOrStdout()

			probe := func() (interface{}, error) {
				start := time.Now()
				err := client.Health(cmd.Context())
				report := HealthReport{
					URL:       client.BaseURL() + agent.HealthPath,
					Healthy:   err == nil,
					LatencyMs: time.Since(start).Milliseconds(),
				}
				if err != nil {
					report.ErrorType = agent.TypeOf(err).String()
				}
				return report, err
			}

			if jsonOut {
				return outputJSON(out, "health", probe)
			}

			data, err := probe()
			report := data.(HealthReport)
			if err != nil {
				fmt.Fprintf(out, "%s %s (%s)\n", errorStyle.Render("✗ unreachable"), report.URL, report.ErrorType)
				return err
			}
			fmt.Fprintf(out, "%s %s %s\n", successStyle.Render("✓ healthy"), report.URL,
				dimStyle.Render(fmt.Sprintf("%dms", report.LatencyMs)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}
