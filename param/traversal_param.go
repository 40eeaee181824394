package param

import "time"

type IssueOrder string

const (
	// IssueOrderOldestFirst walks a newest-first listing backwards.
	IssueOrderOldestFirst IssueOrder = "oldest_first"
	// IssueOrderListing keeps the order the page lists issues in.
	IssueOrderListing IssueOrder = "listing"
)

func (o IssueOrder) IsValid() bool {
	switch o {
	case IssueOrderOldestFirst, IssueOrderListing:
		return true
	default:
		return false
	}
}

// Scroll 文章页抽取前的滚动选项,用于触发懒加载的图表
type Scroll struct {
	ScrollTimes int
	Pause       time.Duration
}

type Traversal struct {
	WaitTimeout time.Duration
	IssueOrder  IssueOrder
	Scroll      Scroll
}
