package model

// Gender is the opaque answer of the name classifier.
// An empty Label means the classifier had no guess for the name.
type Gender struct {
	Label       string  `json:"gender"`
	Probability float64 `json:"probability"`
}

type Author struct {
	Name   string
	Gender Optional[Gender]
}

// Figure is one retained image or table entry. Tables never carry a Link.
type Figure struct {
	Caption Optional[string]
	Link    Optional[string]
}

// Record 单篇文章的抽取结果,构建完成后不再修改
type Record struct {
	Title           string
	DOI             string
	PublicationDate string
	AuthorCount     int

	FirstAuthor      Author
	FirstAffiliation Optional[string]

	// LastAuthor is populated only when AuthorCount > 1, and then with both
	// the name and the classification.
	LastAuthor      Optional[Author]
	LastAffiliation Optional[string]

	// Images and Tables hold the retained prefix only (floor(n/2) of the page's figures).
	Images []Figure
	Tables []Figure

	Article ArticleRef
}

func (r Record) ImageCount() int {
	return len(r.Images)
}

func (r Record) TableCount() int {
	return len(r.Tables)
}

// ImageLinks returns the links of the retained images that have one, in slot order.
func (r Record) ImageLinks() []string {
	links := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if link, ok := img.Link.Get(); ok && link != "" {
			links = append(links, link)
		}
	}
	return links
}
