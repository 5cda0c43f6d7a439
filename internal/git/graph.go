package git

import (
	"fmt"
	"log/slog"
	"strings"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/identity"
)

type GraphOptions struct {
	Dot   bool
	Lanes bool
}

type GraphResult struct {
	Graph *HistoryGraph `json:"graph"`
	Dot   string        `json:"dot,omitempty"`
	Lanes []string      `json:"lanes,omitempty"`
}

// GitGraph builds the history graph and the requested renderings.
func (s *Service) GitGraph(opts GraphOptions) (*GraphResult, error) {
	graph, err := s.BuildGraph()
	if err != nil {
		return nil, err
	}
	res := &GraphResult{Graph: graph}
	if opts.Dot {
		res.Dot = RenderDot(graph)
	}
	if opts.Lanes {
		res.Lanes = RenderLanes(graph)
	}
	return res, nil
}

// BuildGraph walks every commit reachable from a ref, stash entries aside,
// and links parents and children. Any backend failure aborts the build.
func (s *Service) BuildGraph() (*HistoryGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stash, err := s.backend.StashIDs()
	if err != nil {
		return nil, fmt.Errorf("list stash entries: %w", err)
	}
	roots, err := s.historyRoots(stash)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	graph := &HistoryGraph{
		CommitIndex: map[string]int{},
		Commits:     []*CommitNode{},
		Branches:    []BranchInfo{},
		Authors:     []AuthorInfo{},
	}
	seenAuthors := map[string]struct{}{}
	err = s.walk(gitbackend.WalkOptions{Roots: roots}, func(c *gitbackend.Commit) (bool, error) {
		if _, ok := stash[c.Hash]; ok {
			return true, nil
		}
		authorID := identity.ID(c.Author.Name, c.Author.Email)
		if _, ok := seenAuthors[authorID]; !ok {
			seenAuthors[authorID] = struct{}{}
			graph.Authors = append(graph.Authors, AuthorInfo{ID: authorID, Name: c.Author.Name, Email: c.Author.Email})
		}
		parents := c.ParentHashes
		if len(parents) > 2 {
			slog.Debug("octopus merge truncated to two parents",
				slog.String("commit", c.Hash),
				slog.Int("parents", len(parents)),
			)
			parents = parents[:2]
		}
		graph.CommitIndex[c.Hash] = len(graph.Commits)
		graph.Commits = append(graph.Commits, &CommitNode{
			Oid:       c.Hash,
			AuthorID:  authorID,
			Timestamp: c.Timestamp(),
			Message:   firstLine(c.Message),
			Parents:   append([]string{}, parents...),
			Children:  []string{},
			IsMerge:   len(c.ParentHashes) > 1,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := linkChildren(graph); err != nil {
		return nil, err
	}

	refs, err := s.backend.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	for _, ref := range refs {
		if ref.Kind == gitbackend.RefKindBranch {
			graph.Branches = append(graph.Branches, BranchInfo{Name: ref.Name, TipCommitID: ref.Hash})
		}
	}
	slog.Debug("graph built",
		slog.Int("commits", len(graph.Commits)),
		slog.Int("branches", len(graph.Branches)),
		slog.Int("authors", len(graph.Authors)),
		slog.Int("stash", len(stash)),
	)
	return graph, nil
}

// linkChildren fills every node's children from the parent links.
func linkChildren(graph *HistoryGraph) error {
	for _, node := range graph.Commits {
		for _, parent := range node.Parents {
			idx, ok := graph.CommitIndex[parent]
			if !ok {
				return fmt.Errorf("%w: parent %s of %s is not part of the graph", ErrInvariant, parent, node.Oid)
			}
			graph.Commits[idx].Children = append(graph.Commits[idx].Children, node.Oid)
		}
	}
	return nil
}

func shortID(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}
	return oid
}

// RenderDot renders the graph in Graphviz DOT. Nodes are positions labelled
// with the short commit id; edges point from parent to child.
func RenderDot(graph *HistoryGraph) string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for i, node := range graph.Commits {
		fmt.Fprintf(&b, "    %d [ label = %q ]\n", i, shortID(node.Oid))
	}
	for i, node := range graph.Commits {
		for _, parent := range node.Parents {
			fmt.Fprintf(&b, "    %d -> %d [ ]\n", graph.CommitIndex[parent], i)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// RenderLanes draws one text row per commit, in graph order: `*` marks the
// commit's lane and `|` every other open lane.
func RenderLanes(graph *HistoryGraph) []string {
	builder := newLaneBuilder()
	lanes := make([]string, 0, len(graph.Commits))
	for _, node := range graph.Commits {
		lanes = append(lanes, builder.Line(node.Oid, node.Parents))
	}
	return lanes
}

type laneBuilder struct {
	columns []string
}

func newLaneBuilder() *laneBuilder {
	return &laneBuilder{}
}

func (g *laneBuilder) Line(oid string, parents []string) string {
	idx := g.columnIndex(oid)
	if idx == -1 {
		g.columns = append([]string{oid}, g.columns...)
		idx = 0
	}
	var b strings.Builder
	for i := range g.columns {
		if i == idx {
			b.WriteString("*")
		} else {
			b.WriteString("|")
		}
		if i != len(g.columns)-1 {
			b.WriteString(" ")
		}
	}
	g.advance(idx, parents)
	return b.String()
}

func (g *laneBuilder) columnIndex(oid string) int {
	for i, h := range g.columns {
		if h == oid {
			return i
		}
	}
	return -1
}

func (g *laneBuilder) advance(idx int, parents []string) {
	if len(parents) == 0 {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		return
	}
	primary := parents[0]
	if other := g.columnIndex(primary); other != -1 && other != idx {
		// Another lane already waits for the first parent; this one ends here.
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		if other > idx {
			other--
		}
		idx = other
	} else {
		g.columns[idx] = primary
	}
	for i := 1; i < len(parents); i++ {
		parent := parents[i]
		if g.columnIndex(parent) != -1 {
			continue
		}
		pos := idx + i
		if pos > len(g.columns) {
			pos = len(g.columns)
		}
		g.columns = append(g.columns[:pos], append([]string{parent}, g.columns[pos:]...)...)
	}
}
