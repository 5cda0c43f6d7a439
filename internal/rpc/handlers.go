package rpc

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/thiagokokada/git-explorer/internal/git"
)

type NoParams struct{}

type OpenRepositoryParams struct {
	Path string `json:"path" required:"true"`
}

type OpenRepositoryResult struct {
	Success bool `json:"success"`
}

type BranchParams struct {
	Branch string `json:"branch" required:"true"`
}

type GraphParams struct {
	Dot   bool `json:"dot,omitempty" description:"Include a DOT rendering of the graph."`
	Lanes bool `json:"lanes,omitempty" description:"Include one lane row per commit."`
}

type RevParams struct {
	Rev string `json:"rev" required:"true"`
}

type TimeRangeParams struct {
	Branch       string `json:"branch" required:"true"`
	StartSeconds int64  `json:"startSeconds"`
	EndSeconds   int64  `json:"endSeconds"`
}

type RefPairParams struct {
	StartRef string `json:"startRef" required:"true"`
	EndRef   string `json:"endRef" required:"true"`
}

type BlameParams struct {
	Rev      string `json:"rev" required:"true"`
	Path     string `json:"path" required:"true"`
	Preview  bool   `json:"preview,omitempty" description:"Attribute only what rev changed on top of its first parent."`
	SinceRev string `json:"sinceRev,omitempty" description:"Lower bound; older lines are attributed to it."`
}

type FileContentParams struct {
	Path string `json:"path" required:"true"`
	Rev  string `json:"rev" required:"true"`
}

type ChangesResult struct {
	Changed    bool   `json:"changed"`
	Generation uint64 `json:"generation"`
}

type method struct {
	needsRepo bool
	stream    bool
	params    any
	result    any
	call      func(d *Dispatcher, raw json.RawMessage, sink Sink) error
}

// single answers with exactly one end frame.
func single[P, R any](fn func(d *Dispatcher, p P) (R, error)) method {
	var p P
	var r R
	return method{
		needsRepo: true,
		params:    p,
		result:    r,
		call: func(d *Dispatcher, raw json.RawMessage, sink Sink) error {
			var p P
			if err := decodeParams(raw, &p); err != nil {
				return err
			}
			res, err := fn(d, p)
			if err != nil {
				return err
			}
			return sendEnd(sink, res)
		},
	}
}

// streamed emits one frame per element and a final {data:null,end:true}.
func streamed[P, E any](fn func(d *Dispatcher, p P, emit func(E) error) error) method {
	var p P
	var e E
	return method{
		needsRepo: true,
		stream:    true,
		params:    p,
		result:    e,
		call: func(d *Dispatcher, raw json.RawMessage, sink Sink) error {
			var p P
			if err := decodeParams(raw, &p); err != nil {
				return err
			}
			err := fn(d, p, func(e E) error { return sendData(sink, e) })
			if err != nil {
				return err
			}
			return sendEnd(sink, nil)
		},
	}
}

var methods = map[string]method{
	"open_repository":            openRepositoryMethod(),
	"shutdown":                   shutdownMethod(),
	"get_initial_data":           single(getInitialData),
	"get_branches":               single(getBranches),
	"get_commits_for_branch":     single(getCommitsForBranch),
	"get_git_graph":              single(getGitGraph),
	"get_commit":                 single(getCommit),
	"is_valid_rev":               single(isValidRev),
	"get_commits_for_time_range": single(getCommitsForTimeRange),
	"get_commit_ids_for_refs":    single(getCommitIDsForRefs),
	"stream_commits":             streamed(streamCommits),
	"get_file_tree":              single(getFileTree),
	"stream_file_tree":           streamed(streamFileTree),
	"get_blame":                  single(getBlame),
	"get_file_content":           single(getFileContent),
	"stream_authors":             streamed(streamAuthors),
	"get_authors":                single(getAuthors),
	"has_changes":                single(hasChanges),
}

// Methods returns the sorted names of every method the dispatcher routes.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func openRepositoryMethod() method {
	m := single(func(d *Dispatcher, p OpenRepositoryParams) (OpenRepositoryResult, error) {
		if p.Path == "" {
			return OpenRepositoryResult{}, fmt.Errorf("%w: path is required", ErrDecode)
		}
		if err := d.OpenRepository(p.Path); err != nil {
			return OpenRepositoryResult{}, err
		}
		return OpenRepositoryResult{Success: true}, nil
	})
	m.needsRepo = false
	return m
}

func shutdownMethod() method {
	m := single(func(d *Dispatcher, _ NoParams) (any, error) {
		d.markShutdown()
		return nil, nil
	})
	m.needsRepo = false
	return m
}

func getInitialData(d *Dispatcher, _ NoParams) (*git.InitialData, error) {
	return d.svc.InitialData()
}

func getBranches(d *Dispatcher, _ NoParams) ([]string, error) {
	return d.svc.LocalBranchNames()
}

func getCommitsForBranch(d *Dispatcher, p BranchParams) (git.CommitRange, error) {
	return d.svc.BranchRange(p.Branch)
}

func getGitGraph(d *Dispatcher, p GraphParams) (*git.GraphResult, error) {
	return d.svc.GitGraph(git.GraphOptions{Dot: p.Dot, Lanes: p.Lanes})
}

func getCommit(d *Dispatcher, p RevParams) (*git.Commit, error) {
	return d.svc.GetCommit(p.Rev)
}

func isValidRev(d *Dispatcher, p RevParams) (bool, error) {
	return d.svc.IsValidRevision(p.Rev)
}

func getCommitsForTimeRange(d *Dispatcher, p TimeRangeParams) (git.CommitRange, error) {
	return d.svc.ResolveTimeRangeCommits(p.Branch, p.StartSeconds, p.EndSeconds)
}

func getCommitIDsForRefs(d *Dispatcher, p RefPairParams) (git.CommitRange, error) {
	return d.svc.ResolveRefPair(p.StartRef, p.EndRef)
}

func streamCommits(d *Dispatcher, _ NoParams, emit func(*git.Commit) error) error {
	return d.svc.StreamCommits(emit)
}

func getFileTree(d *Dispatcher, p RevParams) ([]*git.TreeNode, error) {
	return d.svc.FileTree(p.Rev)
}

func streamFileTree(d *Dispatcher, p RevParams, emit func(git.TreeEvent) error) error {
	return d.svc.StreamFileTree(p.Rev, emit)
}

func getBlame(d *Dispatcher, p BlameParams) (*git.BlameResult, error) {
	return d.svc.Blame(git.BlameParams{Rev: p.Rev, Path: p.Path, Preview: p.Preview, SinceRev: p.SinceRev})
}

func getFileContent(d *Dispatcher, p FileContentParams) (*git.FileContent, error) {
	return d.svc.FileContent(p.Path, p.Rev)
}

func streamAuthors(d *Dispatcher, _ NoParams, emit func(git.Author) error) error {
	return d.svc.StreamAuthors(emit)
}

func getAuthors(d *Dispatcher, _ NoParams) ([]git.Author, error) {
	return d.svc.Authors()
}

func hasChanges(d *Dispatcher, _ NoParams) (ChangesResult, error) {
	if d.tracker == nil {
		return ChangesResult{}, nil
	}
	changed, gen := d.tracker.Poll()
	return ChangesResult{Changed: changed, Generation: gen}, nil
}
