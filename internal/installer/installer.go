// Package installer drives a salt installation end to end: it identifies
// the distribution, picks the matching implementation and runs it.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/s0undt3ch/salt-bootstrap/internal/distro"
	"github.com/s0undt3ch/salt-bootstrap/internal/osinfo"
)

// Options describes one installation.
type Options struct {
	InstallType string // distro.InstallPkg or distro.InstallGit; empty means pkg
	SaltVersion string // "latest" or a version; empty means latest

	TempDir          string // working directory for checkouts and virtualenvs
	Repo             string
	Ref              string // overrides the ref derived from SaltVersion
	Virtualenv       string // empty means <TempDir>/venv
	VirtualenvPython string
}

// Installer runs installations against one environment.
type Installer struct {
	Deps   distro.Deps
	Detect func() (osinfo.Distribution, error) // nil means osinfo.Detect
	Logger *slog.Logger
}

// Report describes a finished installation.
type Report struct {
	Distribution osinfo.Distribution
	Slug         string
	InstallType  string
	SaltVersion  string
	Virtualenv   string `json:",omitempty"`
}

// Install detects the distribution, looks up its implementation and
// bootstraps salt. The temp directory is created if missing.
func (in *Installer) Install(ctx context.Context, opts Options) (*Report, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.With("component", "installer")
	}
	installType := opts.InstallType
	if installType == "" {
		installType = distro.InstallPkg
	}
	saltVersion := opts.SaltVersion
	if saltVersion == "" {
		saltVersion = "latest"
	}

	detect := in.Detect
	if detect == nil {
		detect = osinfo.Detect
	}
	dist, err := detect()
	if err != nil {
		return nil, fmt.Errorf("detecting distribution: %w", err)
	}
	logger.Debug("detected distribution", "id", dist.ID, "name", dist.Name, "version", dist.Version, "codename", dist.Codename)

	impl, err := distro.Lookup(dist, installType, in.Deps)
	if err != nil {
		return nil, err
	}
	logger.Info("selected implementation", "os", impl.DisplayName(), "slug", impl.Slug(), "install_type", impl.InstallType())

	tempDir, err := filepath.Abs(opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("resolving temp dir: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	req := distro.Request{
		SaltVersion:      saltVersion,
		Repo:             opts.Repo,
		Ref:              gitRef(opts.Ref, saltVersion),
		SourceDir:        filepath.Join(tempDir, "salt"),
		Virtualenv:       opts.Virtualenv,
		VirtualenvPython: opts.VirtualenvPython,
	}
	if req.Virtualenv == "" {
		req.Virtualenv = filepath.Join(tempDir, "venv")
	}

	if err := impl.Bootstrap(ctx, req); err != nil {
		return nil, fmt.Errorf("bootstrapping %s: %w", impl.Slug(), err)
	}

	r := &Report{
		Distribution: dist,
		Slug:         impl.Slug(),
		InstallType:  impl.InstallType(),
		SaltVersion:  saltVersion,
	}
	if installType == distro.InstallGit {
		r.Virtualenv = req.Virtualenv
	}
	return r, nil
}

// gitRef picks what to check out: an explicit ref wins, otherwise salt's
// release tags are "v" followed by the version.
func gitRef(ref, saltVersion string) string {
	if ref != "" {
		return ref
	}
	if saltVersion == "latest" {
		return ""
	}
	return "v" + saltVersion
}
