package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/models"
	"wavecrest-planner/services"
)

// emit writes v as JSON or through the text renderer.
func (c *cli) emit(cmd *cobra.Command, v any, text func(io.Writer) error) error {
	if c.opts.output == "json" || text == nil {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(cmd.OutOrStdout())
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func (c *cli) newBuildCmd() *cobra.Command {
	var (
		month      string
		candidates string
		freq       models.FrequencyRange
	)
	cmd := &cobra.Command{
		Use:   "build-month-plan",
		Short: "Place candidate posts into a month",
		Long:  "Reads a JSON array of candidates (or {\"candidates\": [...]}) and places them into the month.",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMonth(month)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, candidates)
			if err != nil {
				return fmt.Errorf("failed to read candidates: %w", err)
			}
			list, err := parseCandidates(raw)
			if err != nil {
				return err
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			res, err := a.Planner.BuildMonthPlan(cmd.Context(), models.BuildRequest{Month: m, Candidates: list, Frequency: freq})
			if err != nil {
				return err
			}
			return c.emit(cmd, res, func(w io.Writer) error { return renderBuild(w, res) })
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "target month (YYYY-MM)")
	cmd.Flags().StringVar(&candidates, "candidates", "-", "candidates JSON file, - for stdin")
	cmd.Flags().IntVar(&freq.Min, "min-per-week", 0, "advisory weekly minimum (default from compliance config)")
	cmd.Flags().IntVar(&freq.Max, "max-per-week", 0, "advisory weekly maximum (default from compliance config)")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func parseCandidates(raw []byte) ([]models.Candidate, error) {
	var list []models.Candidate
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid candidates JSON: %w", err)
	}
	return wrapped.Candidates, nil
}

func (c *cli) newCheckCmd() *cobra.Command {
	var (
		month   string
		targets string
	)
	cmd := &cobra.Command{
		Use:   "check-compliance",
		Short: "Evaluate a month against the compliance targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMonth(month)
			if err != nil {
				return err
			}
			var override *compliance.Config
			if targets != "" {
				raw, err := readInput(cmd, targets)
				if err != nil {
					return fmt.Errorf("failed to read targets: %w", err)
				}
				cfg, err := compliance.ParseConfig(raw)
				if err != nil {
					return err
				}
				override = &cfg
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			report, err := a.Planner.CheckCompliance(cmd.Context(), m, override)
			if err != nil {
				return err
			}
			return c.emit(cmd, report, func(w io.Writer) error { return renderReport(w, report) })
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to evaluate (YYYY-MM)")
	cmd.Flags().StringVar(&targets, "targets", "", "YAML targets overriding the configured ones for this check")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (c *cli) newExportCmd() *cobra.Command {
	var month, out string
	cmd := &cobra.Command{
		Use:   "export-plan",
		Short: "Write a month calendar and its compliance report to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMonth(month)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("plan-%s.xlsx", m)
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			data, err := services.NewExportService(a.Planner).ExportMonth(cmd.Context(), m)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			result := map[string]any{"file": out, "bytes": len(data)}
			return c.emit(cmd, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Wrote %s (%d bytes)\n", out, len(data))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to export (YYYY-MM)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default plan-YYYY-MM.xlsx)")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
