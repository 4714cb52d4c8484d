package answer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/models"
)

// Retriever ranks chunks for a question.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, question string, topK int) ([]*models.Result, error)
}

// ChunkCounter reports how many chunks are indexed.
type ChunkCounter interface {
	CountChunks(ctx context.Context) (int64, error)
}

// Service is the read-only query path: retrieve, then compose. Safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	retriever Retriever
	composer  *Composer
	topK      int
	counter   ChunkCounter
	logger    *zap.Logger
}

// NewService creates a query service. counter may be nil.
func NewService(retriever Retriever, composer *Composer, topK int, counter ChunkCounter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, composer: composer, topK: topK, counter: counter, logger: logger}
}

// Reconfigure swaps the retriever, composer and default top_k for subsequent questions.
func (s *Service) Reconfigure(retriever Retriever, composer *Composer, topK int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retriever = retriever
	s.composer = composer
	s.topK = topK
}

// Ask answers req. An empty index yields EmptyIndexMessage.
func (s *Service) Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	s.mu.RLock()
	retriever, composer, topK := s.retriever, s.composer, s.topK
	s.mu.RUnlock()

	if err := req.Validate(topK); err != nil {
		return nil, err
	}
	start := time.Now()

	if s.counter != nil {
		n, err := s.counter.CountChunks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count chunks: %w", err)
		}
		if n == 0 {
			return &models.Answer{Question: req.Question, Text: EmptyIndexMessage, Strategy: retriever.Name()}, nil
		}
	}

	results, err := retriever.Retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}
	ans, err := composer.Compose(ctx, req.Question, results)
	if err != nil {
		return nil, err
	}
	ans.Strategy = retriever.Name()
	s.logger.Info("Answered question",
		zap.String("strategy", ans.Strategy),
		zap.Int("results", ans.Results),
		zap.Bool("generated", ans.Generated),
		zap.Duration("duration", time.Since(start)))
	return ans, nil
}
