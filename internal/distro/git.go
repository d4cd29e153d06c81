package distro

import (
	"context"
	"fmt"
	"path/filepath"
)

// gitRelease adds the steps shared by every install from a git checkout.
type gitRelease struct {
	release
}

// cloneSaltRepo clones repo into dest and checks out ref. An existing
// checkout at dest is reused.
func (g *gitRelease) cloneSaltRepo(ctx context.Context, repo, dest, ref string) error {
	if _, err := g.deps.Host.LookPath("git"); err != nil {
		return fmt.Errorf("%w: git", ErrBinaryNotFound)
	}

	if g.deps.Host.Exists(filepath.Join(dest, ".git")) {
		g.deps.Logger.Info("reusing salt checkout", "path", dest)
		if ref != "" {
			if err := g.run(ctx, "git", "-C", dest, "fetch", "--tags", "origin"); err != nil {
				return err
			}
		}
	} else {
		g.deps.Logger.Warn("cloning salt repository", "repo", repo, "path", dest)
		if err := g.run(ctx, "git", "clone", repo, dest); err != nil {
			return err
		}
	}

	if ref == "" {
		return nil
	}
	return g.run(ctx, "git", "-C", dest, "checkout", ref)
}

// createVirtualenv creates a virtualenv at path using python, or the first
// python3 or python on PATH when python is empty.
func (g *gitRelease) createVirtualenv(ctx context.Context, path, python string) error {
	if python == "" {
		for _, name := range []string{"python3", "python"} {
			if p, err := g.deps.Host.LookPath(name); err == nil {
				python = p
				break
			}
		}
		if python == "" {
			return fmt.Errorf("%w: python3", ErrBinaryNotFound)
		}
	}

	if g.deps.Host.Exists(filepath.Join(path, "bin", "python")) {
		g.deps.Logger.Info("reusing virtualenv", "path", path)
		return nil
	}
	g.deps.Logger.Warn("creating virtualenv", "path", path, "python", python)
	return g.run(ctx, python, "-m", "venv", path)
}

// installSalt installs the checkout at src into the virtualenv.
func (g *gitRelease) installSalt(ctx context.Context, venv, src string) error {
	pip := filepath.Join(venv, "bin", "pip")
	g.deps.Logger.Warn("installing salt into virtualenv", "path", venv)
	if err := g.run(ctx, pip, "install", "--upgrade", "pip", "setuptools", "wheel"); err != nil {
		return err
	}
	return g.run(ctx, pip, "install", src)
}

// bootstrapFromGit installs the system dependencies with install, then
// clones, creates the virtualenv and installs salt.
func (g *gitRelease) bootstrapFromGit(ctx context.Context, req Request, deps []string, install func(context.Context, string) error) error {
	for _, pkg := range deps {
		if err := install(ctx, pkg); err != nil {
			return err
		}
	}
	if err := g.cloneSaltRepo(ctx, req.Repo, req.SourceDir, req.Ref); err != nil {
		return err
	}
	if err := g.createVirtualenv(ctx, req.Virtualenv, req.VirtualenvPython); err != nil {
		return err
	}
	return g.installSalt(ctx, req.Virtualenv, req.SourceDir)
}
