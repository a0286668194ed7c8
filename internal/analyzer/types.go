// Package analyzer holds the domain types and error taxonomy shared by
// the fetch pipeline.
package analyzer

// Result is the outcome of counting the pattern in one site's document.
type Result struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Count int    `json:"count"`
	Err   string `json:"error,omitempty"`
}
