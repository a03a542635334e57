// trackerctl prints the team tracker's dashboard and task list from a data
// directory written by the server's file storage. It never writes state.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/export"
	"github.com/bubelovv/team-tracker/internal/logger"
	"github.com/bubelovv/team-tracker/internal/storage/file"
	"github.com/bubelovv/team-tracker/internal/store"
	"github.com/bubelovv/team-tracker/internal/view"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dataDir  string
	verbose  bool
	feed     int
	search   string
	status   string
	priority string
	team     string
	out      string
}

func run(args []string, stdout io.Writer, now func() time.Time) error {
	var opts options
	flagSet := pflag.NewFlagSet("trackerctl", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&opts.dataDir, "data", "d", envOr("DATA_DIR", "./data"), "data directory written by the server")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log storage diagnostics to stderr")
	flagSet.IntVar(&opts.feed, "feed", view.DefaultFeedSize, "number of activity entries on the dashboard")
	flagSet.StringVarP(&opts.search, "search", "s", "", "filter tasks by text")
	flagSet.StringVar(&opts.status, "status", "", "filter tasks by status")
	flagSet.StringVar(&opts.priority, "priority", "", "filter tasks by priority")
	flagSet.StringVar(&opts.team, "team", "", "filter tasks by team")
	flagSet.StringVarP(&opts.out, "out", "o", "", "export destination (default stdout)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stdout, flagSet)
		return nil
	}

	command := "dashboard"
	if rest := flagSet.Args(); len(rest) > 0 {
		command = rest[0]
		if len(rest) > 1 {
			return fmt.Errorf("unexpected argument: %s", rest[1])
		}
	}

	st, err := loadState(context.Background(), opts)
	if err != nil {
		return err
	}

	switch command {
	case "dashboard":
		_, err = io.WriteString(stdout, renderDashboard(view.BuildDashboard(st, now().UTC(), opts.feed)))
		return err
	case "tasks":
		filter, err := opts.filter()
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, renderTasks(view.BuildTaskTable(st, filter, now().UTC())))
		return err
	case "export":
		filter, err := opts.filter()
		if err != nil {
			return err
		}
		return exportTasks(stdout, opts.out, filter.Apply(st.Tasks))
	default:
		return fmt.Errorf("unknown command %q (want dashboard, tasks or export)", command)
	}
}

func (o options) filter() (view.TaskFilter, error) {
	f := view.TaskFilter{Search: o.search, Team: o.team}
	if o.status != "" {
		status, ok := domain.ParseTaskStatus(o.status)
		if !ok {
			return view.TaskFilter{}, fmt.Errorf("unknown status %q", o.status)
		}
		f.Status = status
	}
	if o.priority != "" {
		priority, ok := domain.ParsePriority(o.priority)
		if !ok {
			return view.TaskFilter{}, fmt.Errorf("unknown priority %q", o.priority)
		}
		f.Priority = priority
	}
	return f, nil
}

// readOnly keeps the store from seeding or repairing files it loads.
type readOnly struct {
	store.Persister
}

func (readOnly) Write(context.Context, string, []byte) error { return nil }
func (readOnly) Delete(context.Context, string) error        { return nil }

func loadState(ctx context.Context, opts options) (domain.State, error) {
	if _, err := os.Stat(opts.dataDir); err != nil {
		return domain.State{}, fmt.Errorf("open data dir: %w", err)
	}
	p, err := file.New(opts.dataDir)
	if err != nil {
		return domain.State{}, err
	}

	log := zap.NewNop()
	if opts.verbose {
		if log, err = logger.New("debug", "console"); err != nil {
			return domain.State{}, err
		}
		defer log.Sync()
	}

	s := store.New(readOnly{p}, log)
	s.Load(ctx)
	return s.Snapshot(), nil
}

func exportTasks(stdout io.Writer, out string, tasks []domain.Task) error {
	if out == "" || out == "-" {
		return export.WriteTasksCSV(stdout, tasks)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteTasksCSV(f, tasks); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "exported %d tasks to %s\n", len(tasks), out)
	return err
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `trackerctl shows team tracker state from a data directory.

Usage:
  trackerctl [flags] [dashboard|tasks|export]

Examples:
  trackerctl --data ./data
  trackerctl tasks --status blocked --team Platform
  trackerctl export --search login -o tasks.csv

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
