package param

// Selectors 期刊站点各层级使用的 CSS 选择器,可以在配置中逐项覆盖
type Selectors struct {
	// portal
	CookieAccept string `json:"cookie_accept" yaml:"cookie_accept"`
	AllIssues    string `json:"all_issues" yaml:"all_issues"`

	// hierarchy
	DecadeList       string `json:"decade_list" yaml:"decade_list"`
	ListItem         string `json:"list_item" yaml:"list_item"`
	ActivePane       string `json:"active_pane" yaml:"active_pane"`
	YearList         string `json:"year_list" yaml:"year_list"`
	IssueLink        string `json:"issue_link" yaml:"issue_link"`
	TocSection       string `json:"toc_section" yaml:"toc_section"`
	TocHeading       string `json:"toc_heading" yaml:"toc_heading"`
	TocLink          string `json:"toc_link" yaml:"toc_link"`
	RegularToc       string `json:"regular_toc" yaml:"regular_toc"`
	OnlineDatePrefix string `json:"online_date_prefix" yaml:"online_date_prefix"`

	// article page
	Title           string `json:"title" yaml:"title"`
	DOI             string `json:"doi" yaml:"doi"`
	OnlineDate      string `json:"online_date" yaml:"online_date"`
	Author          string `json:"author" yaml:"author"`
	GivenName       string `json:"given_name" yaml:"given_name"`
	FamilyName      string `json:"family_name" yaml:"family_name"`
	Affiliation     string `json:"affiliation" yaml:"affiliation"`
	AffiliationName string `json:"affiliation_name" yaml:"affiliation_name"`
	ImageFigure     string `json:"image_figure" yaml:"image_figure"`
	TableFigure     string `json:"table_figure" yaml:"table_figure"`
	FigCaption      string `json:"fig_caption" yaml:"fig_caption"`
	FigImage        string `json:"fig_image" yaml:"fig_image"`

	// login ceremony
	InstitutionInput  string `json:"institution_input" yaml:"institution_input"`
	InstitutionResult string `json:"institution_result" yaml:"institution_result"`
	InstitutionNext   string `json:"institution_next" yaml:"institution_next"`
	EmailInput        string `json:"email_input" yaml:"email_input"`
	CredentialTile    string `json:"credential_tile" yaml:"credential_tile"`
	PasswordInput     string `json:"password_input" yaml:"password_input"`
	ProofOption       string `json:"proof_option" yaml:"proof_option"`
	PostLoginMarker   string `json:"post_login_marker" yaml:"post_login_marker"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		CookieAccept: ".css-1mgww4f",
		AllIssues:    "a[data-id='all-issues']",

		DecadeList:       "ul[class='tab__nav rlist loi__tab__nav loi__list']",
		ListItem:         "li",
		ActivePane:       "div[class='tab__pane nested-tab active']",
		YearList:         "ul[class='tab__nav rlist loi__tab__nav loi__list']",
		IssueLink:        "a[class='loi__issue__link']",
		TocSection:       "section",
		TocHeading:       "h4",
		TocLink:          "a",
		RegularToc:       "Regular Articles",
		OnlineDatePrefix: "First published online ",

		Title:           "h1[property='name']",
		DOI:             "div[class='doi'] a",
		OnlineDate:      "div[class='meta-panel__onlineDate']",
		Author:          "span[property='author']",
		GivenName:       "span[property='givenName']",
		FamilyName:      "span[property='familyName']",
		Affiliation:     "div[property='affiliation']",
		AffiliationName: "span[property='name']",
		ImageFigure:     "figure[class='graphic']",
		TableFigure:     "figure[class='table']",
		FigCaption:      "figcaption",
		FigImage:        "img",

		InstitutionInput:  "input[class='form-control js--autocomplete-element']",
		InstitutionResult: "div[id='autoComplete_result_0']",
		InstitutionNext:   "div[class='ORRU02D-k-a']",
		EmailInput:        "#i0116",
		CredentialTile:    "#credentialList > div > div > div > div.table-cell.text-left.content",
		PasswordInput:     "#i0118",
		ProofOption:       "#idDiv_SAOTCS_Proofs > div:nth-child(1) > div > div > div.table-cell.text-left.content",
		PostLoginMarker:   "a[data-id='all-issues']",
	}
}

// Merge 用 override 中非空的字段覆盖默认值
func (s Selectors) Merge(override Selectors) Selectors {
	pairs := []struct {
		dst *string
		src string
	}{
		{&s.CookieAccept, override.CookieAccept},
		{&s.AllIssues, override.AllIssues},
		{&s.DecadeList, override.DecadeList},
		{&s.ListItem, override.ListItem},
		{&s.ActivePane, override.ActivePane},
		{&s.YearList, override.YearList},
		{&s.IssueLink, override.IssueLink},
		{&s.TocSection, override.TocSection},
		{&s.TocHeading, override.TocHeading},
		{&s.TocLink, override.TocLink},
		{&s.RegularToc, override.RegularToc},
		{&s.OnlineDatePrefix, override.OnlineDatePrefix},
		{&s.Title, override.Title},
		{&s.DOI, override.DOI},
		{&s.OnlineDate, override.OnlineDate},
		{&s.Author, override.Author},
		{&s.GivenName, override.GivenName},
		{&s.FamilyName, override.FamilyName},
		{&s.Affiliation, override.Affiliation},
		{&s.AffiliationName, override.AffiliationName},
		{&s.ImageFigure, override.ImageFigure},
		{&s.TableFigure, override.TableFigure},
		{&s.FigCaption, override.FigCaption},
		{&s.FigImage, override.FigImage},
		{&s.InstitutionInput, override.InstitutionInput},
		{&s.InstitutionResult, override.InstitutionResult},
		{&s.InstitutionNext, override.InstitutionNext},
		{&s.EmailInput, override.EmailInput},
		{&s.CredentialTile, override.CredentialTile},
		{&s.PasswordInput, override.PasswordInput},
		{&s.ProofOption, override.ProofOption},
		{&s.PostLoginMarker, override.PostLoginMarker},
	}
	for _, p := range pairs {
		if p.src != "" {
			*p.dst = p.src
		}
	}
	return s
}
