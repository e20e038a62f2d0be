package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Line      string `json:"line"`
	Category  string `json:"category"`
	Shift     string `json:"shift"`
	Sector    string `json:"sector"`
	CreatedAt int64  `json:"createdAt"`
}

// Query describes a search request. Sector scoping mirrors event visibility:
// IncludeAll is set only for privileged actors.
type Query struct {
	Text       string
	Sector     string
	IncludeAll bool
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// EventRecord is the data we index for an incident event.
type EventRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Solution    string `json:"solution"`
	Line        string `json:"line"`
	Category    string `json:"category"`
	Shift       string `json:"shift"`
	Sector      string `json:"sector"`
	CreatedAt   int64  `json:"createdAt"`
}
