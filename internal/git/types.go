package git

type CommitNode struct {
	Oid       string   `json:"oid"`
	AuthorID  string   `json:"authorId"`
	Timestamp int64    `json:"timestamp"`
	Message   string   `json:"message"`
	Parents   []string `json:"parents"`
	Children  []string `json:"children"`
	IsMerge   bool     `json:"isMerge"`
}

type AuthorInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BranchInfo struct {
	Name        string `json:"name"`
	TipCommitID string `json:"tipCommitId"`
}

// HistoryGraph is the full commit DAG. CommitIndex maps every oid to its
// position in Commits.
type HistoryGraph struct {
	CommitIndex map[string]int `json:"commitIndex"`
	Commits     []*CommitNode  `json:"commits"`
	Branches    []BranchInfo   `json:"branches"`
	Authors     []AuthorInfo   `json:"authors"`
}

type CommitFiles struct {
	Added    []string    `json:"added"`
	Modified []string    `json:"modified"`
	Deleted  []string    `json:"deleted"`
	Renamed  [][2]string `json:"renamed"`
}

type Commit struct {
	Oid       string      `json:"oid"`
	AuthorID  string      `json:"authorId"`
	Message   string      `json:"message"`
	Timestamp int64       `json:"timestamp"`
	Parents   []string    `json:"parents"`
	Files     CommitFiles `json:"files"`
}

type CommitRange struct {
	SinceCommitID string  `json:"sinceCommitId,omitempty"`
	UntilCommitID string  `json:"untilCommitId,omitempty"`
	SinceCommit   *Commit `json:"sinceCommit,omitempty"`
	UntilCommit   *Commit `json:"untilCommit,omitempty"`
}

type BlameCommit struct {
	CommitID  string `json:"commitId"`
	AuthorID  string `json:"authorId"`
	Timestamp int64  `json:"timestamp"`
}

type BlameLine struct {
	LineNo   int    `json:"lineNo"`
	CommitID string `json:"commitId"`
	Content  string `json:"content"`
}

type BlameResult struct {
	FileName string                 `json:"fileName"`
	Commits  map[string]BlameCommit `json:"commits"`
	Lines    []BlameLine            `json:"lines"`
}

type TreeNode struct {
	Name     string      `json:"name"`
	Kind     FileKind    `json:"kind"`
	Children []*TreeNode `json:"children,omitempty"`
}

// TreeEvent is one element of a streamed file tree. Directories carry
// Loading; leaves carry Kind.
type TreeEvent struct {
	Path    []string `json:"path"`
	Kind    FileKind `json:"kind,omitempty"`
	Loading *bool    `json:"loading,omitempty"`
}

type FileContent struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Language string `json:"language"`
}

type Author struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	GravatarHash string `json:"gravatarHash"`
	NumCommits   int    `json:"numCommits,omitempty"`
}

type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type InitialData struct {
	CurrentBranch string   `json:"currentBranch"`
	LastCommit    *Commit  `json:"lastCommit"`
	FirstCommit   *Commit  `json:"firstCommit"`
	Remotes       []Remote `json:"remotes"`
	Branches      []string `json:"branches"`
	Tags          []string `json:"tags"`
}
