package models

import (
	"testing"
)

func TestAskRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		req      *AskRequest
		wantErr  bool
		wantTopK int
	}{
		{"empty question", &AskRequest{Question: ""}, true, 0},
		{"whitespace question", &AskRequest{Question: "  \n "}, true, 0},
		{"sets default top_k", &AskRequest{Question: "grace"}, false, 5},
		{"keeps explicit top_k", &AskRequest{Question: "grace", TopK: 3}, false, 3},
		{"caps top_k at 50", &AskRequest{Question: "grace", TopK: 500}, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.req.TopK != tt.wantTopK {
				t.Errorf("TopK: got %d want %d", tt.req.TopK, tt.wantTopK)
			}
		})
	}
}

func TestAskRequest_ValidateTrims(t *testing.T) {
	q := &AskRequest{Question: "  what is faith?  "}
	if err := q.Validate(5); err != nil {
		t.Fatal(err)
	}
	if q.Question != "what is faith?" {
		t.Errorf("got %q", q.Question)
	}
}
