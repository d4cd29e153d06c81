// Package osinfo identifies the operating system distribution salt-bootstrap
// is running on.
package osinfo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Distribution describes the running operating system.
type Distribution struct {
	ID       string `json:"id"`       // lower-case identifier, e.g. "arch", "centos"
	Name     string `json:"name"`     // human-readable name, e.g. "Arch Linux"
	Version  string `json:"version"`  // version, "rolling" when the distribution has none
	Codename string `json:"codename"` // release codename, often empty
}

func (d Distribution) String() string {
	s := d.Name + " " + d.Version
	if d.Codename != "" {
		s += " (" + d.Codename + ")"
	}
	return s
}

// releaseFiles are searched in order, as os-release(5) specifies.
var releaseFiles = []string{"/etc/os-release", "/usr/lib/os-release"}

// Detect reads the os-release file, falling back to the kernel's uname
// when the system has none.
func Detect() (Distribution, error) {
	for _, path := range releaseFiles {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Distribution{}, fmt.Errorf("opening %s: %w", path, err)
		}
		d, err := Parse(f)
		f.Close()
		if err != nil {
			return Distribution{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return d, nil
	}
	return uname()
}

// Parse reads an os-release file. Values may be quoted with single or
// double quotes; double-quoted values honor backslash escapes.
func Parse(r io.Reader) (Distribution, error) {
	fields, err := godotenv.Parse(r)
	if err != nil {
		return Distribution{}, err
	}

	d := Distribution{
		ID:       strings.ToLower(fields["ID"]),
		Name:     fields["NAME"],
		Version:  fields["VERSION_ID"],
		Codename: fields["VERSION_CODENAME"],
	}
	if d.ID == "" {
		d.ID = "linux"
	}
	if d.Name == "" {
		d.Name = "Linux"
	}
	if d.Version == "" {
		// Rolling releases such as Arch ship no VERSION_ID.
		d.Version = "rolling"
	}
	return d, nil
}
