package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"wavecrest-planner/models"
	"wavecrest-planner/services"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statusLabel(s models.ComplianceStatus) string {
	if s == models.StatusCompliant {
		return okColor.Sprint(s)
	}
	return failColor.Sprint(s)
}

func mark(ok bool) string {
	if ok {
		return okColor.Sprint("ok")
	}
	return failColor.Sprint("off")
}

func renderReport(w io.Writer, r models.ComplianceReport) error {
	fmt.Fprintf(w, "Month %s: %s (%d posts)\n", r.Month, statusLabel(r.OverallStatus), r.EvaluatedPosts)
	for _, reason := range r.Reasons {
		fmt.Fprintf(w, "  - %s: %s\n", reason.Code, reason.Message)
	}
	for _, adv := range r.Advisories {
		fmt.Fprintf(w, "  ! %s\n", warnColor.Sprint(adv.Message))
	}

	fmt.Fprintln(w, "\nPillar mix")
	tw := newTable(w)
	fmt.Fprintln(tw, "PILLAR\tCOUNT\tACTUAL\tTARGET\tDEV\t")
	for _, p := range r.PillarMix {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f%%\t%+.1f\t%s\n", p.Pillar, p.Count, p.Actual, p.Target, p.Deviation, mark(p.Within))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nWeeks")
	tw = newTable(w)
	fmt.Fprintln(tw, "WEEK\tDAYS\tCOUNT\tRANGE\tFLAG")
	for _, wk := range r.WeeklyCounts {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d-%d\t%s\n", wk.From.Format(models.DateLayout), wk.Days, wk.Count, wk.Min, wk.Max, wk.Flag)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.GapViolations) > 0 {
		fmt.Fprintln(w, "\nGaps")
		for _, g := range r.GapViolations {
			fmt.Fprintf(w, "  %s -> %s: %d days\n", g.Start.Format(models.DateLayout), g.End.Format(models.DateLayout), g.Days)
		}
	}
	fmt.Fprintf(w, "\nCoverage: instagram=%d facebook=%d %s\n", r.PlatformCoverage.Instagram, r.PlatformCoverage.Facebook, mark(r.PlatformCoverage.Covered))

	if len(r.Hints) > 0 {
		fmt.Fprintln(w, "\nHints")
		for _, h := range r.Hints {
			fmt.Fprintf(w, "  %s %s: %.1f (%d samples)\n", h.Kind, h.Subject, h.Value, h.Samples)
		}
	}
	return nil
}

func renderBuild(w io.Writer, res models.BuildResult) error {
	fmt.Fprintf(w, "Created %d post(s), rejected %d\n", len(res.Created), len(res.Rejected))
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tPLATFORM\tTYPE\tPILLAR\tSTATUS\tID")
	for _, p := range res.Plan.Posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Date.Format(models.DateLayout), p.Platform, p.ContentType, p.Pillar, p.Status, p.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range res.Rejected {
		fmt.Fprintf(w, "%s candidate %d: %s\n", failColor.Sprint("rejected"), r.CandidateIndex, r.Error)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", warnColor.Sprint(warn.Kind), warn.Message)
	}
	return nil
}

func renderList(w io.Writer, list services.EntityList) error {
	tw := newTable(w)
	switch list.Kind {
	case models.KindIdea:
		fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tPILLAR\tTITLE")
		for _, i := range list.Ideas {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", i.ID, i.Status, i.Priority, i.Pillar, i.Title)
		}
	case models.KindScript:
		fmt.Fprintln(tw, "ID\tSTATUS\tSOURCE\tPILLAR\tSESSION\tTITLE")
		for _, s := range list.Scripts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Status, s.Source, s.Pillar, s.SessionDate.Format(models.DateLayout), s.Title)
		}
	case models.KindPost:
		fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tPLATFORM\tPILLAR\tCAPTION")
		for _, p := range list.Posts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Date.Format(models.DateLayout), p.Status, p.Platform, p.Pillar, truncate(p.Caption, 40))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d %s(s)\n", list.Count, list.Kind)
	return nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
