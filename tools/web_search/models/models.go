package models

// Record is a single raw news hit as returned by a backend. Empty fields mean
// the backend did not supply them.
type Record struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Body   string `json:"body"`
	Date   string `json:"date"`
	Image  string `json:"image,omitempty"`
	Source string `json:"source,omitempty"`
}

// NewsOptions are the backend query parameters.
type NewsOptions struct {
	Region     string // e.g. "wt-wt" for worldwide
	SafeSearch string // on, moderate, off
	TimeLimit  string // d, w, m
	MaxResults int
}
