package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wavecrest-planner/models"
)

func (c *cli) newTransitionCmd() *cobra.Command {
	var req models.TransitionRequest
	cmd := &cobra.Command{
		Use:   "transition-entity <kind> <id> <status>",
		Short: "Move an idea, script or post to a new status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			req.Kind, req.ID, req.To = kind, args[1], args[2]
			if req.Actor == "" {
				req.Actor = "cli:" + os.Getenv("USER")
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			res, err := a.Planner.Transition(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.emit(cmd, res, func(w io.Writer) error {
				label := "moved"
				if res.Demoted {
					label = warnColor.Sprint("demoted")
				}
				_, err := fmt.Fprintf(w, "%s %s %s: %s -> %s (version %d)\n", res.Kind, res.ID, label, res.From, res.To, res.Version)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&req.ExpectedVersion, "expected-version", 0, "fail unless the stored version matches (0 skips the check)")
	cmd.Flags().BoolVar(&req.Demote, "demote", false, "allow an explicit backward move")
	cmd.Flags().StringVar(&req.Actor, "actor", "", "who is making the change (default cli:$USER)")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "why; recorded in the transition log")
	return cmd
}

func (c *cli) newListCmd() *cobra.Command {
	var (
		f          models.ListFilter
		pillar     string
		platform   string
		from, to   string
		byPriority bool
	)
	cmd := &cobra.Command{
		Use:   "list-entities-by-status <kind>",
		Short: "List ideas, scripts or posts, optionally filtered by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			if pillar != "" {
				if f.Pillar, err = models.ParsePillar(pillar); err != nil {
					return err
				}
			}
			if platform != "" {
				if f.Platform, err = models.ParsePlatform(platform); err != nil {
					return err
				}
			}
			if from != "" {
				if f.From, err = models.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if f.To, err = models.ParseDate(to); err != nil {
					return err
				}
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			list, err := a.Planner.ListByStatus(cmd.Context(), kind, f, byPriority)
			if err != nil {
				return err
			}
			return c.emit(cmd, list, func(w io.Writer) error { return renderList(w, list) })
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "only this status")
	cmd.Flags().StringVar(&f.ExcludeStatus, "exclude-status", "", "skip this status")
	cmd.Flags().StringVar(&pillar, "pillar", "", "only this pillar")
	cmd.Flags().StringVar(&platform, "platform", "", "only this platform (posts and metrics)")
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&byPriority, "by-priority", false, "order ideas high to low priority")
	return cmd
}

func (c *cli) newAddIdeaCmd() *cobra.Command {
	var req models.CreateIdeaRequest
	var pillar string
	cmd := &cobra.Command{
		Use:   "add-idea",
		Short: "Add an idea to the idea bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Pillar = models.Pillar(pillar)
			req.Priority = models.Priority(strings.ToLower(string(req.Priority)))
			a, err := c.planner()
			if err != nil {
				return err
			}
			idea, err := a.Planner.CreateIdea(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.emit(cmd, idea, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Idea %s added (%s, %s priority)\n", idea.ID, idea.Pillar, idea.Priority)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "idea title")
	cmd.Flags().StringVar(&pillar, "pillar", "", "content pillar")
	cmd.Flags().StringVar((*string)(&req.Priority), "priority", "", "low|medium|high (default medium)")
	cmd.Flags().StringVar(&req.ContentType, "content-type", "", "suggested content type")
	cmd.Flags().StringVar(&req.InspirationSource, "source", "", "where the idea came from")
	cmd.Flags().StringVar(&req.InspirationURL, "url", "", "inspiration link (http or https)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("pillar")
	return cmd
}

func (c *cli) newAddScriptCmd() *cobra.Command {
	var req models.CreateScriptRequest
	var pillar, source, bodyFile string
	cmd := &cobra.Command{
		Use:   "add-script",
		Short: "Add a therapist or UGC script",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Pillar = models.Pillar(pillar)
			req.Source = models.ScriptSource(source)
			if bodyFile != "" {
				raw, err := readInput(cmd, bodyFile)
				if err != nil {
					return fmt.Errorf("failed to read script body: %w", err)
				}
				req.Body = string(raw)
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			script, err := a.Planner.CreateScript(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.emit(cmd, script, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Script %s added (%s, session %s)\n", script.ID, script.Pillar, script.SessionDate.Format(models.DateLayout))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "script title")
	cmd.Flags().StringVar(&pillar, "pillar", "", "content pillar")
	cmd.Flags().StringVar(&source, "source", string(models.SourceTherapist), "Therapist|UGC")
	cmd.Flags().StringVar(&req.ScriptType, "type", "", "script type, e.g. interview")
	cmd.Flags().StringVar(&req.SessionDate, "session-date", "", "recording date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&req.LinkedIdeaID, "idea", "", "linked idea id")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "file holding the script text, - for stdin")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("pillar")
	return cmd
}

func (c *cli) newArchiveStaleCmd() *cobra.Command {
	var days int
	var now string
	cmd := &cobra.Command{
		Use:   "archive-stale-scripts",
		Short: "Archive Draft scripts older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if now != "" {
				d, err := models.ParseDate(now)
				if err != nil {
					return err
				}
				at = d
			}
			a, err := c.planner()
			if err != nil {
				return err
			}
			archived, err := a.Planner.ArchiveStaleScripts(cmd.Context(), days, at)
			if err != nil {
				return err
			}
			return c.emit(cmd, archived, func(w io.Writer) error {
				for _, r := range archived {
					fmt.Fprintf(w, "archived %s\n", r.ID)
				}
				_, err := fmt.Fprintf(w, "%d script(s) archived\n", len(archived))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than", 30, "age in days")
	cmd.Flags().StringVar(&now, "now", "", "reference date (YYYY-MM-DD, default today)")
	return cmd
}
