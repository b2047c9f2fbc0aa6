// Package sync reconciles the card store with the decks on disk.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/gitsource"
	"github.com/conorfennell/knolstudy/internal/knol"
	"github.com/conorfennell/knolstudy/internal/logger"
	"github.com/conorfennell/knolstudy/internal/parser"
	"github.com/conorfennell/knolstudy/internal/storage"
)

// Result summarises the reconciliation of one source.
type Result struct {
	SourceID   int64
	Parsed     int
	Inserted   int
	Retagged   int
	Orphaned   int
	Duplicates int
	Errors     []error
}

type Syncer struct {
	db       *storage.DB
	log      *logger.Logger
	reposDir string
	// Progress receives git clone and pull output. Nil discards it.
	Progress io.Writer
	now      func() time.Time
}

func New(db *storage.DB, log *logger.Logger, reposDir string) *Syncer {
	return &Syncer{db: db, log: log, reposDir: reposDir, now: time.Now}
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and skipped; only store errors abort the run.
func (s *Syncer) Run(ctx context.Context) ([]Result, error) {
	s.log.Info("starting sync for all sources")
	sources, err := s.db.GetAllSources()
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		s.log.Info("no sources configured, add one with add-source <path/or/url.git>")
		return nil, nil
	}

	var results []Result
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		log := s.log.With("source_id", source.ID, "type", source.Type)
		log.Info("syncing source", "path", source.Path)

		dir := source.Path
		if source.Type == storage.SourceGit {
			dir, err = s.checkout(ctx, source.Path)
			if err != nil {
				log.Error("failed to sync git source", "url", source.Path, "error", err)
				continue
			}
		}

		res, err := s.Reconcile(source.ID, dir)
		if err != nil {
			log.Error("failed to reconcile source", "path", dir, "error", err)
			continue
		}
		results = append(results, res)
	}
	s.log.Info("sync complete", "sources", len(results))
	return results, nil
}

func (s *Syncer) checkout(ctx context.Context, repoURL string) (string, error) {
	dir, err := gitsource.LocalPath(s.reposDir, repoURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}
	if err := gitsource.Sync(ctx, s.log, repoURL, dir, s.Progress); err != nil {
		return "", err
	}
	return dir, nil
}

// Reconcile parses every markdown file under dir, inserts unseen cards,
// updates changed priority tags and deletes cards of this source that no
// longer exist on disk. Deletion is skipped while any file fails to parse.
func (s *Syncer) Reconcile(sourceID int64, dir string) (Result, error) {
	res := Result{SourceID: sourceID}
	var (
		parsed   []domain.Card
		unparsed []string
	)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			unparsed = append(unparsed, path)
		}
		parsed = append(parsed, fileCards...)
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}

	cards, dupes := knol.Stamp(parsed)
	res.Parsed = len(cards)
	res.Duplicates = dupes
	found := make(map[string]bool, len(cards))

	for _, card := range cards {
		found[card.Hash] = true

		existing, err := s.db.FindCardByHash(card.Hash)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("db check for %s: %w", card.Hash, err))
			continue
		}
		switch {
		case existing == nil:
			s.log.Debug("new card found, inserting", "hash", card.Hash)
			card.DueDate = s.now()
			if err := s.db.InsertCard(card, sourceID); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("db insert for %s: %w", card.Hash, err))
				continue
			}
			res.Inserted++
		case existing.Priority != card.Priority:
			if err := s.db.UpdateCardPriority(card.Hash, card.Priority); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Retagged++
		}
	}

	// Cards of a file that failed to parse are unaccounted for, so
	// nothing can be called orphaned until every file parses.
	if len(unparsed) > 0 {
		s.log.Warn("skipping orphan removal, some files failed to parse", "path", dir, "files", unparsed)
	} else if err := s.removeOrphans(sourceID, found, &res); err != nil {
		return res, err
	}

	if err := s.db.UpdateSourceLastScanned(sourceID); err != nil {
		s.log.Warn("failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	s.log.Info("reconciliation complete",
		"path", dir,
		"parsed_cards", res.Parsed,
		"inserted", res.Inserted,
		"retagged", res.Retagged,
		"orphaned_deleted", res.Orphaned,
		"duplicates", res.Duplicates,
		"errors", len(res.Errors),
	)
	return res, nil
}

func (s *Syncer) removeOrphans(sourceID int64, found map[string]bool, res *Result) error {
	stored, err := s.db.GetCardsBySourceID(sourceID)
	if err != nil {
		return err
	}
	for _, c := range stored {
		if found[c.Hash] {
			continue
		}
		s.log.Debug("orphaned card, deleting", "hash", c.Hash)
		if err := s.db.DeleteCardByHash(c.Hash); err != nil {
			s.log.Warn("failed to delete orphaned card", "hash", c.Hash, "error", err)
			continue
		}
		res.Orphaned++
	}
	return nil
}

// Err joins the per-card errors of a result, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}
