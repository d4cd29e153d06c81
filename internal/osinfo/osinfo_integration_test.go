//go:build integration

package osinfo_test

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"github.com/s0undt3ch/salt-bootstrap/internal/distro"
	"github.com/s0undt3ch/salt-bootstrap/internal/osinfo"
)

// Integration tests require a running Docker daemon.
// Run with: go test -tags integration ./internal/osinfo/ -run TestContainer

func releaseFromImage(t *testing.T, image string) osinfo.Distribution {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: image,
			Cmd:   []string{"sleep", "infinity"},
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", image, err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("terminating %s: %v", image, err)
		}
	})

	// /etc/os-release is a symlink into /usr/lib on both images.
	rc, err := c.CopyFileFromContainer(ctx, "/usr/lib/os-release")
	if err != nil {
		t.Fatalf("copying os-release: %v", err)
	}
	defer rc.Close()

	d, err := osinfo.Parse(rc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestContainerDetectsSupportedReleases(t *testing.T) {
	cases := []struct {
		image       string
		installType string
		slug        string
	}{
		{"archlinux:latest", distro.InstallGit, "arch-rolling"},
		{"centos:7", distro.InstallPkg, "centos-7"},
		{"centos:7", distro.InstallGit, "centos-7"},
	}

	for _, tc := range cases {
		t.Run(tc.image+"/"+tc.installType, func(t *testing.T) {
			d := releaseFromImage(t, tc.image)

			impl, err := distro.Lookup(d, tc.installType, distro.Deps{})
			if err != nil {
				t.Fatalf("Lookup(%+v): %v", d, err)
			}
			if impl.Slug() != tc.slug {
				t.Errorf("slug = %q, want %q", impl.Slug(), tc.slug)
			}
		})
	}
}
