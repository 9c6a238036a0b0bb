package api

import (
	"sync"

	"github.com/samcharles93/gnacore/internal/request"
)

// ResultStore keeps the most recent score results for retrieval by id.
// Once full, the oldest result is evicted.
type ResultStore struct {
	mu      sync.Mutex
	limit   int
	results map[string]*request.Result
	order   []string
}

func NewResultStore(limit int) *ResultStore {
	if limit < 1 {
		limit = 1
	}
	return &ResultStore{
		limit:   limit,
		results: make(map[string]*request.Result),
	}
}

func (s *ResultStore) Put(res *request.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[res.ID]; !ok {
		s.order = append(s.order, res.ID)
	}
	s.results[res.ID] = res
	for len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.results, oldest)
	}
}

func (s *ResultStore) Get(id string) (*request.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok
}

func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return false
	}
	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
