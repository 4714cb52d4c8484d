package models

// Result is a retrieved chunk with its relevance score. Not persisted.
type Result struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// Citation identifies a source referenced by an answer.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Answer is the composed response to a question.
type Answer struct {
	Question  string     `json:"question"`
	Text      string     `json:"answer"`
	Citations []Citation `json:"sources"`
	Strategy  string     `json:"strategy,omitempty"`
	// Generated is true when the text came from the completion model.
	Generated bool `json:"generated"`
	Results   int  `json:"results"`
}
