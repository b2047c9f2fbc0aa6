package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knolstudy/internal/config"
	"github.com/conorfennell/knolstudy/internal/gitsource"
	"github.com/conorfennell/knolstudy/internal/logger"
	"github.com/conorfennell/knolstudy/internal/queue"
	"github.com/conorfennell/knolstudy/internal/storage"
	"github.com/conorfennell/knolstudy/internal/study"
	"github.com/conorfennell/knolstudy/internal/sync"
)

const usage = `Usage: knolstudy <command> [flags]

Commands:
  add-source <path|url>  Register a deck directory or git repository
  sources                List registered sources
  sync                   Pull git sources and load cards from every source
  stats                  Show card counts
  study                  Run an interactive study session

Run 'knolstudy <command> --help' for flags.
`

// app carries what every command needs once flags are parsed.
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	db   *storage.DB
	args []string
}

type command func(ctx context.Context, a *app) error

var commands = map[string]command{
	"add-source": addSource,
	"sources":    listSources,
	"sync":       runSync,
	"stats":      showStats,
	"study":      runStudy,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, name, cmd, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "knolstudy %s: %v\n", name, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, cmd command, args []string) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Debug("database opened", "path", cfg.DB)

	return cmd(ctx, &app{cfg: cfg, log: log, db: db, args: fs.Args()})
}

func addSource(_ context.Context, a *app) error {
	if len(a.args) != 1 {
		return fmt.Errorf("expected exactly one path or git URL")
	}
	path, kind := a.args[0], storage.SourceGit
	if !gitsource.IsRemote(path) {
		kind = storage.SourceLocal
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", abs)
		}
		path = abs
	}

	existing, err := a.db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Printf("Source already registered (id %d): %s\n", existing.ID, path)
		return nil
	}
	id, err := a.db.InsertSource(path, kind)
	if err != nil {
		return err
	}
	a.log.Info("source added", "source_id", id, "type", kind, "path", path)
	fmt.Printf("Added %s source %d: %s\nRun 'knolstudy sync' to load its cards.\n", kind, id, path)
	return nil
}

func listSources(_ context.Context, a *app) error {
	sources, err := a.db.GetAllSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No sources. Add one with 'knolstudy add-source <path|url>'.")
		return nil
	}
	for _, s := range sources {
		scanned := "never"
		if s.LastScanned.Valid {
			scanned = s.LastScanned.Time.Local().Format(time.DateTime)
		}
		fmt.Printf("%3d  %-5s  %s  (last scanned %s)\n", s.ID, s.Type, s.Path, scanned)
	}
	return nil
}

func runSync(ctx context.Context, a *app) error {
	s := sync.New(a.db, a.log, a.cfg.ReposDir)
	results, err := s.Run(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("source %d: %d cards, %d new, %d retagged, %d removed, %d duplicates, %d errors\n",
			r.SourceID, r.Parsed, r.Inserted, r.Retagged, r.Orphaned, r.Duplicates, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}
	return nil
}

func showStats(_ context.Context, a *app) error {
	cards, err := a.db.GetAllCards()
	if err != nil {
		return err
	}
	c := queue.Summarize(cards, time.Now())
	fmt.Printf("Cards:     %d\nNew:       %d\nLearning:  %d\nReview:    %d due\nDue now:   %d\n",
		c.Total, c.New, c.Learning, c.Review, c.Due)
	return nil
}

func runStudy(ctx context.Context, a *app) error {
	exam, err := a.cfg.Exam(time.Local)
	if err != nil {
		return err
	}
	svc := study.New(a.db, a.log, study.Options{
		Params:       a.cfg.Params(),
		NewLimit:     fetchLimit(a.cfg.NewCardLimit),
		ReviewLimit:  fetchLimit(a.cfg.ReviewLimit),
		ExamDate:     exam,
		ExamPullDays: a.cfg.ExamPullDays,
		RequeueMin:   a.cfg.RequeueMin,
		RequeueMax:   a.cfg.RequeueMax,
		Rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	return interact(ctx, svc, os.Stdin, os.Stdout)
}

// A configured limit of zero means no limit.
func fetchLimit(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
