//go:build windows

package osinfo

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func uname() (Distribution, error) {
	v := windows.RtlGetVersion()
	return Distribution{
		ID:      "windows",
		Name:    "Windows",
		Version: fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber),
	}, nil
}
