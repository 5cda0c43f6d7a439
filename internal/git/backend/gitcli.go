package backend

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitCLI reads objects through go-git but asks the git executable for refs and
// blame. git blame tracks lines copied or moved across files, which go-git
// cannot do.
type gitCLI struct {
	*native
}

func OpenCLI(repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	out, err := runGitCommand(abs, []string{"rev-parse", "--show-toplevel"}, false, "git rev-parse")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	n, err := openNative(root)
	if err != nil {
		return nil, err
	}
	slog.Debug("using git executable for refs and blame", slog.String("path", root))
	return &gitCLI{native: n}, nil
}

func (g *gitCLI) HeadState() (hash string, headName string, ok bool, err error) {
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return "", "", false, err
	}
	hash = strings.TrimSpace(out)
	if hash == "" {
		return "", "", false, nil
	}
	ref, err := g.runGitCommand([]string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return "", "", false, err
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

func (g *gitCLI) ListRefs() ([]Ref, error) {
	out, err := g.runGitCommand([]string{"--no-pager", "show-ref", "--dereference"}, true, "git show-ref")
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

func (g *gitCLI) Blame(opts BlameOptions) ([]BlameLine, error) {
	if opts.Oldest == opts.Newest && opts.Oldest != "" {
		// An empty range would make git blame the worktree's HEAD instead.
		return g.native.Blame(opts)
	}
	if err := g.checkOldest(opts); err != nil {
		return nil, err
	}
	args := []string{"blame", "--porcelain", "-M", "-C", "-C", "-C"}
	if opts.FirstParent {
		args = append(args, "--first-parent")
	}
	rev := opts.Newest
	if opts.Oldest != "" {
		rev = opts.Oldest + ".." + opts.Newest
	}
	args = append(args, rev, "--", opts.Path)
	out, err := g.runGitCommand(args, false, "git blame")
	if err != nil {
		return nil, err
	}
	lines, err := parseBlamePorcelain(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse git blame: %w", err)
	}
	return lines, nil
}

func (g *gitCLI) runGitCommand(args []string, allowExit1 bool, context string) (string, error) {
	return runGitCommand(g.path, args, allowExit1, context)
}

func runGitCommand(dir string, args []string, allowExit1 bool, context string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"-C", dir}, args...)
	cmd := exec.Command("git", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// exit code 1 without stderr means "nothing matched"
		} else {
			if stderr.Len() > 0 {
				return "", fmt.Errorf("%s: %v: %s", context, err, strings.TrimSpace(stderr.String()))
			}
			return "", fmt.Errorf("%s: %w", context, err)
		}
	}
	return stdout.String(), nil
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		r := Ref{Hash: entry.hash, Full: entry.ref}
		switch {
		case strings.HasPrefix(entry.ref, "refs/tags/"):
			r.Kind = RefKindTag
			r.Name = strings.TrimPrefix(entry.ref, "refs/tags/")
			if peeled, ok := peeledByTagRef[entry.ref]; ok && peeled != "" {
				r.Hash = peeled
			}
		case strings.HasPrefix(entry.ref, "refs/heads/"):
			r.Kind = RefKindBranch
			r.Name = strings.TrimPrefix(entry.ref, "refs/heads/")
		case strings.HasPrefix(entry.ref, "refs/remotes/"):
			r.Kind = RefKindRemoteBranch
			r.Name = strings.TrimPrefix(entry.ref, "refs/remotes/")
		case entry.ref == stashRefName.String():
			r.Kind = RefKindStash
			r.Name = "stash"
		default:
			r.Kind = RefKindOther
			r.Name = strings.TrimPrefix(entry.ref, "refs/")
		}
		if r.Name == "" {
			continue
		}
		refs = append(refs, r)
	}
	return refs, nil
}
