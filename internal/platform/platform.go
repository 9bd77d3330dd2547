package platform

import (
	"fmt"
	"runtime"
)

// Info pins the OS/architecture pair an install targets. Detect uses the
// running process's values; tests construct arbitrary pairs.
type Info struct {
	OS   string
	Arch string
}

func Detect() Info {
	return Info{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func (i Info) Key() string { return i.OS + "-" + i.Arch }

func (i Info) IsWindows() bool { return i.OS == "windows" }

// AssetCandidates returns release asset names to try for this platform, in
// preference order. Archives are named after the product and the platform
// pair, not the version, so the same names select the right asset in any
// release.
func (i Info) AssetCandidates(binary string) []string {
	exts := []string{".tar.gz", ".tar.xz", ".zip"}
	if i.IsWindows() {
		exts = []string{".zip", ".tar.gz"}
	}
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, fmt.Sprintf("%s-%s-%s%s", binary, i.OS, i.Arch, ext))
	}
	return names
}

// ExeName appends the suffix Windows expects on executables.
func (i Info) ExeName(binary string) string {
	if i.IsWindows() {
		return binary + ".exe"
	}
	return binary
}
