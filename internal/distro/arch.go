package distro

import "context"

// pacmanKeyring is where pacman-key keeps its keys once initialized.
const pacmanKeyring = "/etc/pacman.d/gnupg"

func init() {
	Register("arch", "rolling", InstallGit, func(deps Deps) OperatingSystem {
		return &ArchLinuxGit{gitRelease: gitRelease{release{
			name:        "arch",
			displayName: "Arch Linux",
			version:     "rolling",
			installType: InstallGit,
			deps:        deps,
		}}}
	})
}

// ArchLinuxGit installs salt from git on Arch Linux.
//
// pacman does not resolve dependencies against outdated packages, so the
// system is fully upgraded once before anything is installed.
type ArchLinuxGit struct {
	gitRelease
	upgraded  bool
	dbUpdated bool
}

func (a *ArchLinuxGit) SystemDependencies() []string {
	return []string{"git", "python", "base-devel"}
}

func (a *ArchLinuxGit) checkKeys(ctx context.Context) error {
	if a.deps.Host.Exists(pacmanKeyring) {
		return nil
	}
	if err := a.run(ctx, "pacman-key", "--init"); err != nil {
		return err
	}
	return a.run(ctx, "pacman-key", "--populate", "archlinux")
}

func (a *ArchLinuxGit) upgradeSystem(ctx context.Context) error {
	if a.upgraded {
		return nil
	}
	a.deps.Logger.Warn("upgrading system")

	if err := a.checkKeys(ctx); err != nil {
		return err
	}
	steps := [][]string{
		{"pacman", "-Syy", "--noconfirm"},
		{"pacman", "-S", "--noconfirm", "--needed", "archlinux-keyring"},
		{"pacman", "-Su", "--noconfirm", "--needed", "pacman"},
	}
	for _, args := range steps {
		if err := a.run(ctx, args...); err != nil {
			return err
		}
	}
	if path, err := a.deps.Host.LookPath("pacman-db-upgrade"); err == nil {
		if err := a.run(ctx, path); err != nil {
			return err
		}
	}
	a.upgraded = true
	return nil
}

func (a *ArchLinuxGit) updatePackageDatabase(ctx context.Context) error {
	if a.dbUpdated {
		return nil
	}
	if err := a.run(ctx, "pacman", "-Syy"); err != nil {
		return err
	}
	a.dbUpdated = true
	return nil
}

func (a *ArchLinuxGit) InstallSystemPackage(ctx context.Context, pkg string) error {
	if err := a.updatePackageDatabase(ctx); err != nil {
		return err
	}
	return a.run(ctx, "pacman", "-S", "--noconfirm", "--needed", pkg)
}

func (a *ArchLinuxGit) Bootstrap(ctx context.Context, req Request) error {
	if err := a.upgradeSystem(ctx); err != nil {
		return err
	}
	return a.bootstrapFromGit(ctx, req, a.SystemDependencies(), a.InstallSystemPackage)
}
