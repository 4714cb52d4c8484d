//go:build !faiss || !cgo

package vector

import "context"

// FAISSIndex is a placeholder when the faiss build tag is not set.
type FAISSIndex struct{}

// NewFAISSIndex always fails without FAISS support.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	return ErrFAISSUnavailable
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Remove(ctx context.Context, ids []string) error { return ErrFAISSUnavailable }
func (f *FAISSIndex) Save(path string) error                         { return ErrFAISSUnavailable }
func (f *FAISSIndex) Load(path string) error                         { return ErrFAISSUnavailable }
func (f *FAISSIndex) Size() int                                      { return 0 }
func (f *FAISSIndex) IDs() []string                                   { return nil }
func (f *FAISSIndex) Close() error                                   { return nil }
