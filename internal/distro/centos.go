package distro

import "context"

func init() {
	Register("centos", "7", InstallPkg, func(deps Deps) OperatingSystem {
		return &CentOS7{release: centosRelease(InstallPkg, deps)}
	})
	Register("centos", "7", InstallGit, func(deps Deps) OperatingSystem {
		return &CentOS7Git{gitRelease: gitRelease{centosRelease(InstallGit, deps)}}
	})
}

func centosRelease(installType string, deps Deps) release {
	return release{
		name:        "centos",
		displayName: "CentOS",
		version:     "7",
		installType: installType,
		deps:        deps,
	}
}

func yumInstall(ctx context.Context, r *release, pkg string) error {
	return r.run(ctx, "yum", "install", "-y", pkg)
}

// CentOS7 installs salt from packages on CentOS 7.
type CentOS7 struct {
	release
}

func (c *CentOS7) SystemDependencies() []string {
	return []string{"epel-release"}
}

func (c *CentOS7) InstallSystemPackage(ctx context.Context, pkg string) error {
	return yumInstall(ctx, &c.release, pkg)
}

func (c *CentOS7) Bootstrap(ctx context.Context, req Request) error {
	for _, pkg := range c.SystemDependencies() {
		if err := c.InstallSystemPackage(ctx, pkg); err != nil {
			return err
		}
	}
	pkg := "salt-minion"
	if req.SaltVersion != "" && req.SaltVersion != "latest" {
		pkg += "-" + req.SaltVersion
	}
	c.deps.Logger.Warn("installing salt package", "package", pkg)
	return c.InstallSystemPackage(ctx, pkg)
}

// CentOS7Git installs salt from git on CentOS 7.
type CentOS7Git struct {
	gitRelease
}

func (c *CentOS7Git) SystemDependencies() []string {
	return []string{"git", "python3", "python3-devel", "gcc"}
}

func (c *CentOS7Git) InstallSystemPackage(ctx context.Context, pkg string) error {
	return yumInstall(ctx, &c.release, pkg)
}

func (c *CentOS7Git) Bootstrap(ctx context.Context, req Request) error {
	return c.bootstrapFromGit(ctx, req, c.SystemDependencies(), c.InstallSystemPackage)
}
