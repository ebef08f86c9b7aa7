package deployconfig

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/berthci/berth/internal/backup"
	"github.com/berthci/berth/internal/fsio"
	"github.com/berthci/berth/internal/log"
	"github.com/berthci/berth/internal/rules"
)

// Options resolves environment-specific configuration sections.
type Options struct {
	// Context is the deploy context name, e.g. "production" or
	// "deploy-preview".
	Context string
	// Branch is the branch being built.
	Branch string
}

// Updater applies an accumulated mutation log to the on-disk deploy
// configuration. The side-file parsers are injectable collaborators; the
// defaults understand the `_headers` and `_redirects` formats.
type Updater struct {
	fs             afero.Fs
	backups        *backup.Manager
	logger         *slog.Logger
	parseHeaders   func([]byte) ([]rules.HeaderRule, error)
	parseRedirects func([]byte) ([]rules.RedirectRule, error)
}

// NewUpdater creates an Updater sharing fs with the backup manager.
func NewUpdater(fs afero.Fs, backups *backup.Manager) *Updater {
	return &Updater{
		fs:             fs,
		backups:        backups,
		logger:         log.WithComponent("deployconfig"),
		parseHeaders:   rules.ParseHeaders,
		parseRedirects: rules.ParseRedirects,
	}
}

// UpdateConfig folds the mutation log, merges it with the existing
// configuration and side files, snapshots the prior state, and persists the
// merged result. An empty log is a strict no-op: nothing on disk is touched.
func (u *Updater) UpdateConfig(ctx context.Context, mutations []Mutation, paths backup.Paths, opts Options) error {
	if len(mutations) == 0 {
		return nil
	}

	inline, err := Apply(mutations)
	if err != nil {
		return err
	}

	// Resolve context/branch sections before the file is read so every
	// later merge step sees concrete values.
	inline = inline.ResolveContext(opts.Context, opts.Branch)

	existing, err := u.readExisting(paths.Config)
	if err != nil {
		return err
	}

	merged := Merge(existing, inline)

	merged, err = u.foldSideFiles(merged, paths)
	if err != nil {
		return err
	}
	merged = merged.Simplify()

	if err := u.backups.Backup(ctx, paths); err != nil {
		return err
	}

	data, err := Serialize(merged)
	if err != nil {
		return err
	}

	// The merged file becomes the single source of truth for any side-file
	// kind the mutation log touched; the corresponding side file goes away
	// so stale content is never re-merged.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fsio.WriteFile(u.fs, paths.Config, data)
	})
	if Touches(mutations, KindHeaders) {
		g.Go(func() error {
			return fsio.RemoveIfExists(u.fs, paths.Headers)
		})
	}
	if Touches(mutations, KindRedirects) {
		g.Go(func() error {
			return fsio.RemoveIfExists(u.fs, paths.Redirects)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	u.logger.Info("deploy configuration updated",
		"path", paths.Config,
		"mutations", len(mutations),
		"headers", len(merged.Headers),
		"redirects", len(merged.Redirects))
	return nil
}

// RestoreConfig undoes UpdateConfig. The no-op condition mirrors
// UpdateConfig exactly: an empty mutation log means nothing was persisted,
// so nothing is restored.
func (u *Updater) RestoreConfig(ctx context.Context, mutations []Mutation, paths backup.Paths) error {
	if len(mutations) == 0 {
		return nil
	}
	return u.backups.Restore(ctx, paths)
}

func (u *Updater) readExisting(path string) (Config, error) {
	data, found, err := fsio.ReadFileIfExists(u.fs, path)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, nil
	}
	return Parse(data)
}

// foldSideFiles merges rules declared via the `_headers` and `_redirects`
// side files. Side-file rules are evaluated before configuration-file rules
// at serve time, so they are prepended.
func (u *Updater) foldSideFiles(cfg Config, paths backup.Paths) (Config, error) {
	if data, found, err := fsio.ReadFileIfExists(u.fs, paths.Headers); err != nil {
		return Config{}, err
	} else if found {
		parsed, err := u.parseHeaders(data)
		if err != nil {
			return Config{}, err
		}
		cfg.Headers = append(parsed, cfg.Headers...)
	}

	if data, found, err := fsio.ReadFileIfExists(u.fs, paths.Redirects); err != nil {
		return Config{}, err
	} else if found {
		parsed, err := u.parseRedirects(data)
		if err != nil {
			return Config{}, err
		}
		cfg.Redirects = append(parsed, cfg.Redirects...)
	}

	return cfg, nil
}
