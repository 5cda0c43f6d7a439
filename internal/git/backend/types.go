package backend

import "time"

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash         string
	TreeHash     string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
}

// Timestamp is the commit time in seconds, the value history ordering uses.
func (c *Commit) Timestamp() int64 {
	if c == nil || c.Committer.When.IsZero() {
		if c != nil && !c.Author.When.IsZero() {
			return c.Author.When.Unix()
		}
		return 0
	}
	return c.Committer.When.Unix()
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
	RefKindStash
	RefKindOther
)

type Ref struct {
	Hash string // peeled commit hash for tags
	Kind RefKind
	Name string // short name: main, origin/main, v1
	Full string // full name: refs/heads/main
}

type Remote struct {
	Name string
	URL  string
}

type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryExecutable
	EntrySymlink
	EntryDir
	EntrySubmodule
)

type TreeEntry struct {
	Name string
	Hash string
	Kind EntryKind
}

func (e TreeEntry) IsDir() bool { return e.Kind == EntryDir }

type ChangeAction uint8

const (
	ChangeAdded ChangeAction = iota
	ChangeModified
	ChangeDeleted
	ChangeRenamed
)

type FileChange struct {
	Action ChangeAction
	From   string // empty for additions
	To     string // empty for deletions
}

type WalkOptions struct {
	// Roots are commit hashes to start from. Duplicates are ignored.
	Roots       []string
	FirstParent bool
	// Reverse yields the oldest commits first.
	Reverse bool
}

type BlameOptions struct {
	Path string
	// Newest is the commit whose content is attributed.
	Newest string
	// Oldest bounds the attribution; lines older than it are attributed to it.
	Oldest      string
	FirstParent bool
}

type BlameLine struct {
	CommitHash string
	Author     Signature
}
