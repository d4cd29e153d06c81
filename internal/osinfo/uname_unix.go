//go:build !windows

package osinfo

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

func uname() (Distribution, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return Distribution{}, fmt.Errorf("uname: %w", err)
	}
	sysname := unix.ByteSliceToString(u.Sysname[:])
	return Distribution{
		ID:      strings.ToLower(sysname),
		Name:    sysname,
		Version: unix.ByteSliceToString(u.Release[:]),
	}, nil
}
