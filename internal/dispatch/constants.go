package dispatch

import (
	"path/filepath"

	"github.com/berthci/berth/internal/backup"
)

// Constants are the build-dir-derived paths handed to executors. Derivation
// is pure; the dispatcher caches the result per build directory.
type Constants struct {
	BuildDir      string
	ConfigPath    string
	HeadersPath   string
	RedirectsPath string
	PublishDir    string
	FunctionsDir  string
	BackupDir     string
}

// Paths converts the constants into the artifact layout the mutation
// subsystem operates on.
func (c Constants) Paths() backup.Paths {
	return backup.Paths{
		Config:    c.ConfigPath,
		Headers:   c.HeadersPath,
		Redirects: c.RedirectsPath,
		BackupDir: c.BackupDir,
	}
}

func resolveConstants(buildDir, configPath string) Constants {
	if configPath == "" {
		configPath = filepath.Join(buildDir, "deploy.toml")
	}
	return Constants{
		BuildDir:      buildDir,
		ConfigPath:    configPath,
		HeadersPath:   filepath.Join(buildDir, "_headers"),
		RedirectsPath: filepath.Join(buildDir, "_redirects"),
		PublishDir:    filepath.Join(buildDir, "public"),
		FunctionsDir:  filepath.Join(buildDir, "functions"),
		BackupDir:     filepath.Join(buildDir, backup.BackupDirName),
	}
}

// constantsFor returns cached constants for the (buildDir, configPath)
// pair, deriving them once per pair.
func (d *Dispatcher) constantsFor(buildDir, configPath string) Constants {
	key := buildDir + "\x00" + configPath
	if c, ok := d.constants[key]; ok {
		return c
	}
	c := resolveConstants(buildDir, configPath)
	d.constants[key] = c
	return c
}
