package models

// SourceMeta records where a URL was first seen.
type SourceMeta struct {
	Task    string `json:"task"`
	AgentID string `json:"agent_id"`
}

// SourceRegistry is an order-stable, deduplicated table of URLs discovered
// across all subagents. Order is first subagent in task order, then first-seen
// order within that subagent's source list. Dedup is exact string equality;
// URLs are never normalized. The registry is built sequentially after the
// fan-in barrier and is never mutated concurrently.
type SourceRegistry struct {
	urls []string
	meta map[string]SourceMeta
}

// BuildSourceRegistry compiles the registry from results in their original
// task order. Metadata for a URL comes from its first occurrence.
func BuildSourceRegistry(results []SubagentResult) *SourceRegistry {
	r := &SourceRegistry{meta: make(map[string]SourceMeta)}
	for _, res := range results {
		for _, url := range res.Sources {
			if url == "" {
				continue
			}
			if _, seen := r.meta[url]; seen {
				continue
			}
			r.urls = append(r.urls, url)
			r.meta[url] = SourceMeta{Task: res.Task, AgentID: res.AgentID}
		}
	}
	return r
}

// URLs returns the registered URLs in registration order.
func (r *SourceRegistry) URLs() []string { return r.urls }

// Meta returns the first-seen metadata for a registered URL.
func (r *SourceRegistry) Meta(url string) (SourceMeta, bool) {
	m, ok := r.meta[url]
	return m, ok
}

// Len returns the number of registered URLs.
func (r *SourceRegistry) Len() int { return len(r.urls) }

// Fallback synthesizes one Citation per registered URL: index is the 1-based
// registration order, title is the URL itself. Used when the generation
// service's bibliography text cannot be parsed; it guarantees a well-formed,
// non-empty bibliography whenever at least one source was registered.
func (r *SourceRegistry) Fallback(accessedDate string) []Citation {
	citations := make([]Citation, 0, len(r.urls))
	for i, url := range r.urls {
		citations = append(citations, Citation{
			Index:        i + 1,
			Title:        url,
			URL:          url,
			AccessedDate: accessedDate,
		})
	}
	return citations
}
