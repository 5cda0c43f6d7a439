package backend

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Minimum git version for the CLI blame adapter. Porcelain blame with repeated
// -C and --first-parent behaves consistently from this release on.
var minGitVersion = semver.MustParse("2.23.0")

func MinGitVersion() string {
	return minGitVersion.String()
}

func parseGitVersionOutput(out string) (*semver.Version, bool) {
	s := strings.TrimSpace(out)
	if s == "" {
		return nil, false
	}
	// Common formats:
	// - "git version 2.44.0"
	// - "git version 2.39.3 (Apple Git-146)"
	// - "git version 2.39.3.windows.1"
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("git version"):])
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return nil, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	if len(parts) < 2 {
		return nil, false
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, false
	}
	return v, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.LessThan(minGitVersion) {
		return fmt.Errorf("git %s is too old; git-explorer requires git >= %s", got, minGitVersion)
	}
	return nil
}

type gitVersionInfo struct {
	out string
	err error
}

var (
	gitVersionOnce      sync.Once
	gitVersionInfoCache gitVersionInfo
)

func gitVersionInfoCached() gitVersionInfo {
	gitVersionOnce.Do(func() {
		outBytes, err := exec.Command("git", "--version").CombinedOutput()
		out := strings.TrimSpace(string(outBytes))
		gitVersionInfoCache.out = out
		if err != nil {
			if out != "" {
				gitVersionInfoCache.err = fmt.Errorf("git --version: %v: %s", err, out)
				return
			}
			gitVersionInfoCache.err = fmt.Errorf("git --version: %w", err)
		}
	})
	return gitVersionInfoCache
}

// GitVersion reports the raw `git --version` output of the executable on PATH.
func GitVersion() (string, error) {
	info := gitVersionInfoCached()
	return info.out, info.err
}

var (
	minGitVersionOnce sync.Once
	minGitVersionErr  error
)

func ensureMinGitVersion() error {
	minGitVersionOnce.Do(func() {
		info := gitVersionInfoCached()
		if info.err != nil {
			minGitVersionErr = info.err
			return
		}
		minGitVersionErr = validateGitVersionOutput(info.out)
	})
	return minGitVersionErr
}
