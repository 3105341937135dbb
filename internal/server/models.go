package server

// HTTPError is the error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// Info is the body of GET /info.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Tool    string `json:"tool"`
	SSE     string `json:"sse"`
	Auth    bool   `json:"auth"`
}
