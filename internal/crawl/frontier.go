package crawl

import "github.com/hyperjump/yomu/internal/models"

// Frontier is the FIFO work queue of one crawl plus the set of URLs already taken from it.
// A URL is visited when popped, whatever the outcome of fetching it.
type Frontier struct {
	queue   []models.FrontierEntry
	visited map[string]bool
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{visited: make(map[string]bool)}
}

// Push appends url at depth unless it was already visited.
func (f *Frontier) Push(url string, depth int) {
	if f.visited[url] {
		return
	}
	f.queue = append(f.queue, models.FrontierEntry{URL: url, Depth: depth})
}

// Pop removes the next unvisited entry and marks it visited. ok is false when the queue is drained.
func (f *Frontier) Pop() (entry models.FrontierEntry, ok bool) {
	for len(f.queue) > 0 {
		entry = f.queue[0]
		f.queue[0] = models.FrontierEntry{}
		f.queue = f.queue[1:]
		if f.visited[entry.URL] {
			continue
		}
		f.visited[entry.URL] = true
		return entry, true
	}
	return models.FrontierEntry{}, false
}

// MarkVisited records url as visited without queueing it, e.g. a redirect target.
func (f *Frontier) MarkVisited(url string) {
	f.visited[url] = true
}

// Visited reports whether url was popped or marked.
func (f *Frontier) Visited(url string) bool {
	return f.visited[url]
}

// Len returns the number of queued entries, including ones that will be skipped as visited.
func (f *Frontier) Len() int {
	return len(f.queue)
}
