//go:build faiss && cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"github.com/hyperjump/yomu/pkg/utils"
)

// FAISSIndex stores unit vectors in a FAISS IndexFlatIP, so inner product equals cosine
// similarity. Chunk IDs map to FAISS labels. Removed or replaced labels stay in the flat
// index as tombstones and are skipped at search time.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	labels     map[string]int64
	ids        map[int64]string
	nextLabel  int64
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty FAISS inner-product index.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var flat *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{
		index:      (*C.FaissIndex)(unsafe.Pointer(flat)),
		dimensions: dimensions,
		labels:     make(map[string]int64),
		ids:        make(map[int64]string),
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add inserts vectors. A vector already stored under the same ID is tombstoned and replaced.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	flat := make([]float32, len(vectors)*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		row := flat[i*f.dimensions : (i+1)*f.dimensions]
		copy(row, vec)
		utils.NormalizeL2(row)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ret := C.faiss_Index_add(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return fmt.Errorf("add vectors to FAISS index: %s", faissLastError())
	}
	for _, id := range ids {
		if old, ok := f.labels[id]; ok {
			delete(f.ids, old)
		}
		f.labels[id] = f.nextLabel
		f.ids[f.nextLabel] = id
		f.nextLabel++
	}
	return nil
}

// Search returns the top-k live vectors by cosine similarity, highest first.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.labels) == 0 {
		return nil, nil
	}
	q := make([]float32, len(query))
	copy(q, query)
	if utils.NormalizeL2(q) == 0 {
		return nil, nil
	}

	ntotal := int(C.faiss_Index_ntotal(f.index))
	// tombstones occupy result slots, so ask for enough to cover them
	n := k + (ntotal - len(f.labels))
	if n > ntotal {
		n = ntotal
	}
	distances := make([]float32, n)
	labels := make([]int64, n)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&q[0])),
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search: %s", faissLastError())
	}

	results := make([]*VectorResult, 0, k)
	for i, label := range labels {
		id, ok := f.ids[label]
		if label < 0 || !ok {
			continue
		}
		results = append(results, &VectorResult{ID: id, Score: float64(distances[i])})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove tombstones vectors by ID. Unknown IDs are ignored.
func (f *FAISSIndex) Remove(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if label, ok := f.labels[id]; ok {
			delete(f.ids, label)
			delete(f.labels, id)
		}
	}
	return nil
}

type faissLabels struct {
	Labels    map[string]int64
	NextLabel int64
}

// Save writes the FAISS index to path+".faiss" and the label map to path+".idmap".
func (f *FAISSIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("save FAISS index: %s", faissLastError())
	}
	mapFile, err := os.Create(path + ".idmap")
	if err != nil {
		return fmt.Errorf("create id map file: %w", err)
	}
	defer mapFile.Close()
	if err := gob.NewEncoder(mapFile).Encode(faissLabels{Labels: f.labels, NextLabel: f.nextLabel}); err != nil {
		return fmt.Errorf("encode id map: %w", err)
	}
	return nil
}

// Load replaces the index with the files saved at path. Missing files leave it unchanged.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	faissPath := path + ".faiss"
	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}
	mapFile, err := os.Open(path + ".idmap")
	if err != nil {
		return fmt.Errorf("open id map file: %w", err)
	}
	defer mapFile.Close()
	var saved faissLabels
	if err := gob.NewDecoder(mapFile).Decode(&saved); err != nil {
		return fmt.Errorf("decode id map: %w", err)
	}

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("load FAISS index: %s", faissLastError())
	}
	if dim := int(C.faiss_Index_d(loaded)); dim != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, f.dimensions)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.labels = saved.Labels
	if f.labels == nil {
		f.labels = make(map[string]int64)
	}
	f.ids = make(map[int64]string, len(f.labels))
	for id, label := range f.labels {
		f.ids[label] = id
	}
	f.nextLabel = saved.NextLabel
	return nil
}

// Size returns the number of live vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.labels)
}

// IDs returns the live IDs in label order.
func (f *FAISSIndex) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.labels))
	for id := range f.labels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return f.labels[ids[i]] < f.labels[ids[j]] })
	return ids
}

// Close frees the native index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
