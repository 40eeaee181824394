package model

import "fmt"

type Level string

const (
	LevelDecade  Level = "decade"
	LevelYear    Level = "year"
	LevelIssue   Level = "issue"
	LevelArticle Level = "article"
)

// HierarchyNode 目录中某一层级的一个可点击条目
// Handle is only valid for the DOM snapshot it was read from; it must be
// re-resolved after any navigation, never kept across one.
type HierarchyNode struct {
	Label    string
	Level    Level
	Position int
	Handle   any
}

func (n HierarchyNode) String() string {
	return fmt.Sprintf("%s[%d] %q", n.Level, n.Position, n.Label)
}

// IssueRef is the resolved URL of one issue within a year.
type IssueRef struct {
	Year string
	URL  string
}

// ArticleRef is the resolved URL of one article within an issue.
type ArticleRef struct {
	Year     string
	IssueURL string
	URL      string
}
