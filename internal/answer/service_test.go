package answer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yomu/internal/models"
)

type fakeRetriever struct {
	results []*models.Result
	topK    int
}

func (f *fakeRetriever) Name() string { return "fake" }

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, topK int) ([]*models.Result, error) {
	f.topK = topK
	return f.results, nil
}

type countFunc func() int64

func (f countFunc) CountChunks(context.Context) (int64, error) { return f(), nil }

func TestService_Ask(t *testing.T) {
	r := &fakeRetriever{results: []*models.Result{result("https://example.com/a", "A", "grace text", 1)}}
	s := NewService(r, NewComposer(nil, nil), 5, countFunc(func() int64 { return 1 }), nil)

	ans, err := s.Ask(context.Background(), &models.AskRequest{Question: "  grace?  "})
	require.NoError(t, err)
	assert.Equal(t, "grace?", ans.Question)
	assert.Equal(t, "fake", ans.Strategy)
	assert.Equal(t, 5, r.topK)
	assert.Len(t, ans.Citations, 1)

	_, err = s.Ask(context.Background(), &models.AskRequest{Question: "   "})
	assert.Error(t, err)
}

func TestService_EmptyIndex(t *testing.T) {
	r := &fakeRetriever{}
	s := NewService(r, NewComposer(nil, nil), 5, countFunc(func() int64 { return 0 }), nil)

	ans, err := s.Ask(context.Background(), &models.AskRequest{Question: "grace?"})
	require.NoError(t, err)
	assert.Equal(t, EmptyIndexMessage, ans.Text)
	assert.Zero(t, r.topK)
}

func TestService_Reconfigure(t *testing.T) {
	first := &fakeRetriever{}
	second := &fakeRetriever{}
	s := NewService(first, NewComposer(nil, nil), 5, nil, nil)
	s.Reconfigure(second, NewComposer(nil, nil), 7)

	ans, err := s.Ask(context.Background(), &models.AskRequest{Question: "grace?"})
	require.NoError(t, err)
	assert.Equal(t, NoResultsMessage, ans.Text)
	assert.Zero(t, first.topK)
	assert.Equal(t, 7, second.topK)
}
