// Package distro holds the per-distribution knowledge needed to install
// salt: which packages to pull in, which package manager to drive and how
// to build salt from a git checkout.
//
// Every command goes through a Runner, so the same code runs against the
// real system or a recording fake in tests.
package distro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/s0undt3ch/salt-bootstrap/internal/osinfo"
	"github.com/s0undt3ch/salt-bootstrap/internal/subprocess"
)

// Install types.
const (
	InstallPkg = "pkg"
	InstallGit = "git"
)

var (
	// ErrUnsupported is returned by Lookup when no implementation matches.
	ErrUnsupported = errors.New("unsupported operating system")
	// ErrBinaryNotFound is returned when a required executable is missing.
	ErrBinaryNotFound = errors.New("required binary not found")
)

// Runner runs one command to completion. Implementations fail on a
// non-zero exit code.
type Runner interface {
	Run(ctx context.Context, args ...string) (*subprocess.Result, error)
}

// Host answers questions about the local filesystem.
type Host interface {
	Exists(path string) bool
	LookPath(file string) (string, error)
}

// LocalHost is the Host for the machine salt-bootstrap runs on.
type LocalHost struct{}

func (LocalHost) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (LocalHost) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Request carries what the user asked to install.
type Request struct {
	SaltVersion string // "latest" or a version number

	// Git installs only.
	Repo             string // repository to clone
	Ref              string // branch, tag or commit to check out; empty keeps the default branch
	SourceDir        string // where the repository is cloned
	Virtualenv       string // virtualenv salt is installed into
	VirtualenvPython string // interpreter used to create the virtualenv; empty searches PATH
}

// OperatingSystem installs salt on one distribution release.
type OperatingSystem interface {
	// Slug identifies the release, e.g. "centos-7".
	Slug() string
	DisplayName() string
	// InstallType is InstallPkg or InstallGit.
	InstallType() string
	// SystemDependencies lists the system packages Bootstrap installs.
	SystemDependencies() []string
	InstallSystemPackage(ctx context.Context, pkg string) error
	Bootstrap(ctx context.Context, req Request) error
}

// Deps are what an OperatingSystem needs from its environment.
type Deps struct {
	Runner Runner
	Host   Host
	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Host == nil {
		d.Host = LocalHost{}
	}
	if d.Logger == nil {
		d.Logger = slog.With("component", "distro")
	}
	return d
}

// Factory builds an OperatingSystem bound to deps.
type Factory func(deps Deps) OperatingSystem

type registryKey struct {
	id, version, installType string
}

var registry = map[registryKey]Factory{}

// Register makes an implementation available to Lookup. It panics on a
// duplicate registration.
func Register(id, version, installType string, f Factory) {
	k := registryKey{id, version, installType}
	if _, dup := registry[k]; dup {
		panic(fmt.Sprintf("distro: %s-%s (%s) registered twice", id, version, installType))
	}
	registry[k] = f
}

// Lookup returns the implementation for d and installType. A version such
// as "7.9" also matches an implementation registered for its major "7".
func Lookup(d osinfo.Distribution, installType string, deps Deps) (OperatingSystem, error) {
	versions := []string{d.Version}
	if major, _, ok := strings.Cut(d.Version, "."); ok {
		versions = append(versions, major)
	}
	for _, v := range versions {
		if f, ok := registry[registryKey{d.ID, v, installType}]; ok {
			return f(deps.withDefaults()), nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s (%s install)", ErrUnsupported, d.Name, d.Version, installType)
}

// Supported lists every registered implementation as "slug (type)", sorted.
func Supported() []string {
	var out []string
	for k := range registry {
		out = append(out, fmt.Sprintf("%s-%s (%s)", k.id, k.version, k.installType))
	}
	sort.Strings(out)
	return out
}

// release is the identity every implementation embeds.
type release struct {
	name        string
	displayName string
	version     string
	installType string
	deps        Deps
}

func (r *release) Slug() string        { return r.name + "-" + r.version }
func (r *release) DisplayName() string { return r.displayName }
func (r *release) InstallType() string { return r.installType }

func (r *release) String() string {
	return fmt.Sprintf("%s %s (%s install)", r.displayName, r.version, r.installType)
}

func (r *release) run(ctx context.Context, args ...string) error {
	_, err := r.deps.Runner.Run(ctx, args...)
	return err
}
