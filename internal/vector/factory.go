package vector

import (
	"errors"
	"fmt"
)

// IndexType names a vector index backend.
type IndexType string

const (
	// IndexTypeMemory is the brute-force in-process index.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS flat inner-product index. Requires -tags=faiss and libfaiss_c.
	IndexTypeFAISS IndexType = "faiss"
)

// ErrFAISSUnavailable is returned when the binary was built without FAISS support.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install libfaiss_c")

// NewVectorIndex creates a vector index of the given type. An empty type means memory.
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
