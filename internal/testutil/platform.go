package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform describes the environment a test runs in.
type Platform struct {
	IsWindows bool
	// IsRoot is true for UID 0, which ignores file mode permissions.
	IsRoot bool
}

// DetectPlatform reports the current platform.
func DetectPlatform(t testing.TB) Platform {
	t.Helper()
	p := Platform{
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    runtime.GOOS != "windows" && os.Geteuid() == 0,
	}
	t.Logf("platform: os=%s root=%v", runtime.GOOS, p.IsRoot)
	return p
}

// SkipUnlessPermissionsEnforced skips tests that simulate I/O failures with
// chmod, which neither root nor Windows honour.
func SkipUnlessPermissionsEnforced(t testing.TB) {
	t.Helper()
	p := DetectPlatform(t)
	if p.IsWindows {
		t.Skip("file mode permissions not enforced on windows")
	}
	if p.IsRoot {
		t.Skip("file mode permissions not enforced for root")
	}
}
