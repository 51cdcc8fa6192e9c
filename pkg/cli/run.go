package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/feedbackloop/actionflow/pkg/service/worker"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRun() *cli.Command {
	var be backends

	jobs := []struct {
		name  string
		usage string
	}{
		{worker.JobEscalation, "Run one escalation tick over all tenants"},
		{worker.JobTrend, "Classify trend for actions not yet analysed"},
		{worker.JobOverdue, "Notify about actions past their due date"},
		{worker.JobCleanup, "Delete expired read and archived notifications"},
	}

	commands := make([]*cli.Command, 0, len(jobs))
	for _, j := range jobs {
		name := j.name
		commands = append(commands, &cli.Command{
			Name:  name,
			Usage: j.usage,
			Action: func(ctx context.Context, c *cli.Command) error {
				return runJob(ctx, &be, name, c.Root().Writer)
			},
		})
	}

	return &cli.Command{
		Name:     "run",
		Aliases:  []string{"r"},
		Usage:    "Run a scheduled job once",
		Flags:    be.Flags(),
		Commands: commands,
	}
}

func runJob(ctx context.Context, be *backends, name string, w io.Writer) error {
	rt, err := be.build(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	job, err := worker.FindJob(rt.jobs, name)
	if err != nil {
		return err
	}

	report, err := worker.NewScheduler(rt.jobs, rt.workers...).RunOnce(ctx, job)
	if err != nil {
		if errors.Is(err, worker.ErrLocked) {
			fmt.Fprintf(w, "%s %s is running elsewhere\n", color.New(color.FgYellow).Sprint("SKIPPED"), name)
			return nil
		}
		return goerr.Wrap(err, "job failed", goerr.V("job", name))
	}

	printReport(w, name, report)
	return nil
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

type reportLine struct {
	label string
	value int
	c     *color.Color
}

func count(label string, v int) reportLine {
	return reportLine{label: label, value: v, c: okColor}
}

// errorCount is red when anything failed
func errorCount(v int) reportLine {
	if v > 0 {
		return reportLine{label: "errors", value: v, c: failColor}
	}
	return reportLine{label: "errors", value: v, c: okColor}
}

func printReport(w io.Writer, job string, report any) {
	var lines []reportLine
	switch r := report.(type) {
	case *usecase.TickReport:
		lines = []reportLine{
			count("tenants", r.Tenants),
			count("rules", r.Rules),
			count("candidates", r.Candidates),
			count("escalated", r.Escalated),
			{label: "skipped", value: r.Skipped, c: warnColor},
			errorCount(r.Errors),
		}
	case *usecase.TrendReport:
		lines = []reportLine{
			count("total", r.Total),
			count("processed", r.Processed),
			errorCount(r.Errors),
		}
	case *usecase.OverdueReport:
		lines = []reportLine{
			count("tenants", r.Tenants),
			count("overdue", r.Overdue),
			count("notified", r.Notified),
			errorCount(r.Errors),
		}
	case *usecase.CleanupReport:
		lines = []reportLine{
			count("deleted", r.Deleted),
		}
	default:
		fmt.Fprintf(w, "%s %s: %v\n", headColor.Sprint("DONE"), job, report)
		return
	}

	fmt.Fprintf(w, "%s %s\n", headColor.Sprint("DONE"), job)
	for _, l := range lines {
		fmt.Fprintf(w, "  %-11s %s\n", l.label, l.c.Sprint(l.value))
	}
	if r, ok := report.(*usecase.CleanupReport); ok {
		fmt.Fprintf(w, "  %-11s %s\n", "cutoff", r.Cutoff.Format(time.RFC3339))
	}
}
