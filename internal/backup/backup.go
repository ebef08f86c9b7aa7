// Package backup snapshots the deploy configuration artifacts before the
// mutation subsystem rewrites them, and restores the pre-mutation state once
// the deploy call that needed the rewrite has finished.
package backup

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/berthci/berth/internal/fsio"
	"github.com/berthci/berth/internal/log"
)

// BackupDirName is the build-scoped directory, relative to the build dir,
// holding configuration snapshots.
const BackupDirName = ".netlify/deploy"

const manifestName = "manifest.yaml"

// Paths locates the three configuration artifacts and the snapshot
// directory for one build.
type Paths struct {
	Config    string
	Headers   string
	Redirects string
	BackupDir string
}

// PathsFor derives the conventional artifact paths for a build directory.
func PathsFor(buildDir, configPath string) Paths {
	return Paths{
		Config:    configPath,
		Headers:   filepath.Join(buildDir, "_headers"),
		Redirects: filepath.Join(buildDir, "_redirects"),
		BackupDir: filepath.Join(buildDir, BackupDirName),
	}
}

type slot struct {
	name string
	live string
}

func (p Paths) slots() []slot {
	return []slot{
		{name: "config", live: p.Config},
		{name: "headers", live: p.Headers},
		{name: "redirects", live: p.Redirects},
	}
}

func (p Paths) backupPath(s slot) string {
	return filepath.Join(p.BackupDir, filepath.Base(s.live))
}

// manifest records which slots were captured and the digest of each
// snapshot. It is advisory: restore decisions are existence-based, the
// digests only produce integrity warnings.
type manifest struct {
	Digests map[string]string `yaml:"digests"`
}

// Manager copies configuration artifacts into and out of the snapshot
// directory. The three slots are independent and processed concurrently.
type Manager struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewManager creates a Manager operating on fs.
func NewManager(fs afero.Fs) *Manager {
	return &Manager{
		fs:     fs,
		logger: log.WithComponent("backup"),
	}
}

// Backup snapshots every currently existing artifact into the backup
// directory. Stale snapshots from a previous run are deleted first; a
// missing source simply yields no snapshot for that slot.
func (m *Manager) Backup(ctx context.Context, paths Paths) error {
	if err := m.fs.MkdirAll(paths.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	var (
		mu sync.Mutex
		mf = manifest{Digests: make(map[string]string)}
	)

	g, _ := errgroup.WithContext(ctx)
	for _, s := range paths.slots() {
		s := s
		g.Go(func() error {
			dst := paths.backupPath(s)
			if err := fsio.RemoveIfExists(m.fs, dst); err != nil {
				return err
			}

			data, found, err := fsio.ReadFileIfExists(m.fs, s.live)
			if err != nil {
				return err
			}
			if !found {
				m.logger.Debug("no live file to back up", "slot", s.name, "path", s.live)
				return nil
			}

			if err := fsio.WriteFile(m.fs, dst, data); err != nil {
				return err
			}

			sum := blake3.Sum256(data)
			mu.Lock()
			mf.Digests[s.name] = hex.EncodeToString(sum[:])
			mu.Unlock()

			m.logger.Debug("backed up", "slot", s.name, "path", s.live)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return m.writeManifest(paths, mf)
}

// Restore copies every snapshot back over its live path; a slot with no
// snapshot has its live file deleted, reconstructing "did not exist before
// mutation". Calling Restore twice is safe: the second pass repeats only
// redundant copies and deletes.
func (m *Manager) Restore(ctx context.Context, paths Paths) error {
	mf := m.readManifest(paths)

	g, _ := errgroup.WithContext(ctx)
	for _, s := range paths.slots() {
		s := s
		g.Go(func() error {
			src := paths.backupPath(s)
			data, found, err := fsio.ReadFileIfExists(m.fs, src)
			if err != nil {
				return err
			}
			if !found {
				return fsio.RemoveIfExists(m.fs, s.live)
			}

			if want, ok := mf.Digests[s.name]; ok {
				sum := blake3.Sum256(data)
				if got := hex.EncodeToString(sum[:]); got != want {
					m.logger.Warn("backup digest mismatch, restoring anyway",
						"slot", s.name, "expected", want, "actual", got)
				}
			}

			if err := fsio.WriteFile(m.fs, s.live, data); err != nil {
				return err
			}
			m.logger.Debug("restored", "slot", s.name, "path", s.live)
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) writeManifest(paths Paths, mf manifest) error {
	data, err := yaml.Marshal(mf)
	if err != nil {
		return fmt.Errorf("marshal backup manifest: %w", err)
	}
	return fsio.WriteFile(m.fs, filepath.Join(paths.BackupDir, manifestName), data)
}

func (m *Manager) readManifest(paths Paths) manifest {
	mf := manifest{Digests: make(map[string]string)}
	data, found, err := fsio.ReadFileIfExists(m.fs, filepath.Join(paths.BackupDir, manifestName))
	if err != nil || !found {
		return mf
	}
	if err := yaml.Unmarshal(data, &mf); err != nil {
		m.logger.Warn("unreadable backup manifest, skipping digest checks", "error", err)
		return manifest{Digests: make(map[string]string)}
	}
	if mf.Digests == nil {
		mf.Digests = make(map[string]string)
	}
	return mf
}
