package backend

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
)

type walkNode struct {
	commit *Commit
	seq    int
	// pending counts walked children not yet emitted.
	pending int
}

// Walk orders the reachable commits so every commit precedes its parents and,
// among the commits ready to be emitted, the most recent commit time wins. Ties
// fall back to discovery order so the result is deterministic.
func (n *native) Walk(opts WalkOptions) (LogStream, error) {
	nodes, order, err := n.collect(opts)
	if err != nil {
		return nil, err
	}
	commits := topoTimeOrder(nodes, order, opts.FirstParent)
	if opts.Reverse {
		for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
			commits[i], commits[j] = commits[j], commits[i]
		}
	}
	slog.Debug("walk finished",
		slog.Int("roots", len(opts.Roots)),
		slog.Int("commits", len(commits)),
		slog.Bool("firstParent", opts.FirstParent),
		slog.Bool("reverse", opts.Reverse),
	)
	return &sliceStream{commits: commits}, nil
}

func (n *native) collect(opts WalkOptions) (map[string]*walkNode, []string, error) {
	nodes := make(map[string]*walkNode)
	var order []string
	var queue []string
	for _, root := range opts.Roots {
		if _, seen := nodes[root]; seen {
			continue
		}
		c, err := n.Commit(root)
		if err != nil {
			return nil, nil, fmt.Errorf("walk from %s: %w", root, err)
		}
		nodes[root] = &walkNode{commit: c, seq: len(order)}
		order = append(order, root)
		queue = append(queue, root)
	}
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		for _, parent := range walkedParents(nodes[hash].commit, opts.FirstParent) {
			if _, seen := nodes[parent]; seen {
				continue
			}
			c, err := n.Commit(parent)
			if err != nil {
				return nil, nil, fmt.Errorf("walk parent %s of %s: %w", parent, hash, err)
			}
			nodes[parent] = &walkNode{commit: c, seq: len(order)}
			order = append(order, parent)
			queue = append(queue, parent)
		}
	}
	return nodes, order, nil
}

func walkedParents(c *Commit, firstParent bool) []string {
	if firstParent && len(c.ParentHashes) > 1 {
		return c.ParentHashes[:1]
	}
	return c.ParentHashes
}

func topoTimeOrder(nodes map[string]*walkNode, order []string, firstParent bool) []*Commit {
	for _, hash := range order {
		for _, parent := range walkedParents(nodes[hash].commit, firstParent) {
			if p, ok := nodes[parent]; ok {
				p.pending++
			}
		}
	}
	heap := binaryheap.NewWith(func(a, b interface{}) int {
		x, y := a.(*walkNode), b.(*walkNode)
		tx, ty := x.commit.Timestamp(), y.commit.Timestamp()
		switch {
		case tx > ty:
			return -1
		case tx < ty:
			return 1
		default:
			return x.seq - y.seq
		}
	})
	for _, hash := range order {
		if nodes[hash].pending == 0 {
			heap.Push(nodes[hash])
		}
	}
	out := make([]*Commit, 0, len(order))
	for {
		v, ok := heap.Pop()
		if !ok {
			break
		}
		node := v.(*walkNode)
		out = append(out, node.commit)
		for _, parent := range walkedParents(node.commit, firstParent) {
			p, ok := nodes[parent]
			if !ok {
				continue
			}
			p.pending--
			if p.pending == 0 {
				heap.Push(p)
			}
		}
	}
	return out
}

type sliceStream struct {
	commits []*Commit
	pos     int
}

func (s *sliceStream) Next() (*Commit, error) {
	if s.pos >= len(s.commits) {
		return nil, io.EOF
	}
	c := s.commits[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error {
	s.commits = nil
	return nil
}

func isZeroHash(hash string) bool {
	return hash == "" || hash == plumbing.ZeroHash.String()
}
