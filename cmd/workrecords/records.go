package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"workrecords/internal/adapter/restapi"
	"workrecords/internal/domain"
)

// Layouts accepted by --start.
var startLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Work with work records through a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "API base URL", Sources: cli.EnvVars("WORKRECORDS_SERVER")},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List live records",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset"},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					recs, err := client(cmd).List(ctx, "", "", int(cmd.Int("offset")), int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					if cmd.Bool("json") {
						return printJSON(recs)
					}
					printRecords(os.Stdout, recs)
					return nil
				},
			},
			{
				Name:  "count",
				Usage: "Count live records",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					n, err := client(cmd).Count(ctx)
					if err != nil {
						return err
					}
					fmt.Println(n)
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "Show one record",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := idArg(cmd)
					if err != nil {
						return err
					}
					rec, err := client(cmd).Read(ctx, id)
					if err != nil {
						return err
					}
					return show(cmd, rec)
				},
			},
			{
				Name:  "create",
				Usage: "Book time against a project",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "company-id", Required: true},
					&cli.StringFlag{Name: "company-title", Required: true},
					&cli.StringFlag{Name: "project-id", Required: true},
					&cli.StringFlag{Name: "project-title", Required: true},
					&cli.StringFlag{Name: "resource-id", Required: true},
					&cli.StringFlag{Name: "rate-id", Required: true},
				}, contentFlags()...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rec := domain.WorkRecord{
						CompanyID:    cmd.String("company-id"),
						CompanyTitle: cmd.String("company-title"),
						ProjectID:    cmd.String("project-id"),
						ProjectTitle: cmd.String("project-title"),
						ResourceID:   cmd.String("resource-id"),
						RateID:       cmd.String("rate-id"),
					}
					if err := applyContent(cmd, &rec); err != nil {
						return err
					}
					created, err := client(cmd).Create(ctx, rec)
					if err != nil {
						return err
					}
					return show(cmd, created)
				},
			},
			{
				Name:      "update",
				Usage:     "Change start, duration, comment or billable flag",
				ArgsUsage: "<id>",
				Flags:     contentFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := idArg(cmd)
					if err != nil {
						return err
					}
					c := client(cmd)
					rec, err := c.Read(ctx, id)
					if err != nil {
						return err
					}
					if err := applyContent(cmd, &rec); err != nil {
						return err
					}
					updated, err := c.Update(ctx, id, rec)
					if err != nil {
						return err
					}
					return show(cmd, updated)
				},
			},
			{
				Name:      "delete",
				Usage:     "Disable a record",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := idArg(cmd)
					if err != nil {
						return err
					}
					if err := client(cmd).Delete(ctx, id); err != nil {
						return err
					}
					fmt.Println("deleted", id)
					return nil
				},
			},
		},
	}
}

func contentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Usage: "RFC3339 or YYYY-MM-DD[THH:MM], UTC unless an offset is given"},
		&cli.IntFlag{Name: "hours"},
		&cli.IntFlag{Name: "minutes"},
		&cli.StringFlag{Name: "comment"},
		&cli.BoolFlag{Name: "billable"},
	}
}

// applyContent copies the content flags the user set onto rec.
func applyContent(cmd *cli.Command, rec *domain.WorkRecord) error {
	if cmd.IsSet("start") {
		t, err := parseStart(cmd.String("start"))
		if err != nil {
			return err
		}
		rec.StartAt = t
	}
	if cmd.IsSet("hours") {
		rec.DurationHours = int(cmd.Int("hours"))
	}
	if cmd.IsSet("minutes") {
		rec.DurationMinutes = int(cmd.Int("minutes"))
	}
	if cmd.IsSet("comment") {
		rec.Comment = cmd.String("comment")
	}
	if cmd.IsSet("billable") {
		rec.Billable = cmd.Bool("billable")
	}
	return nil
}

func parseStart(val string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --start %q, expected RFC3339 or YYYY-MM-DD[THH:MM]", val)
}

func client(cmd *cli.Command) *restapi.Client {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return restapi.NewClient(cmd.String("server"), logger)
}

func idArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: exactly one <id> argument is required", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func show(cmd *cli.Command, rec domain.WorkRecord) error {
	if cmd.Bool("json") {
		return printJSON(rec)
	}
	printRecords(os.Stdout, []domain.WorkRecord{rec})
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(w io.Writer, recs []domain.WorkRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tCOMPANY\tRESOURCE\tRATE\tSTART\tDURATION\tBILLABLE\tCOMMENT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d:%02d\t%t\t%s\n",
			r.ID, r.ProjectTitle, r.CompanyTitle, r.ResourceID, r.RateID,
			r.StartAt.Format("2006-01-02 15:04"), r.DurationHours, r.DurationMinutes,
			r.Billable, r.Comment)
	}
	tw.Flush()
}
