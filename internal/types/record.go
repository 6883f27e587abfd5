package types

// ArticleRecord is the structured content extracted from one article page.
type ArticleRecord struct {
	URL        string   `json:"url"        bson:"url"`
	Title      string   `json:"title"      bson:"title"`
	Paragraphs []string `json:"paragraphs" bson:"paragraphs"`
	Headers    []string `json:"headers"    bson:"headers"`
	ListItems  []string `json:"lists"      bson:"lists"`
}

// NewArticleRecord returns a record with non-nil, empty sequences so that
// articles without paragraphs, headers or lists serialize as [] rather than null.
func NewArticleRecord(url, title string) *ArticleRecord {
	return &ArticleRecord{
		URL:        url,
		Title:      title,
		Paragraphs: []string{},
		Headers:    []string{},
		ListItems:  []string{},
	}
}
