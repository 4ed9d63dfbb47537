// package repositories provides the file-backed stores for blacklists and playback history.
//
// Each store keeps its state in memory and rewrites a whole-file JSON snapshot after every mutation,
// while holding the lock that guards that state.
package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/chatdj/internal/shared"
)

// IDSet is a persisted set of identifiers guarded by its own lock.
type IDSet struct {
	name      string
	path      string
	normalize func(string) string
	mu        sync.RWMutex
	ids       map[string]struct{}
}

// OpenIDSet loads the set stored at path, creating an empty snapshot when the file does not exist.
func OpenIDSet(name, path string, normalize func(string) string) (*IDSet, error) {
	if normalize == nil {
		normalize = strings.TrimSpace
	}
	s := &IDSet{name: name, path: path, normalize: normalize, ids: map[string]struct{}{}}

	var ids []string
	err := shared.ReadJSONFile(path, &ids)
	switch {
	case os.IsNotExist(err):
		if err := s.save(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	for _, id := range ids {
		if id = normalize(id); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s, nil
}

// Name returns the label used in logs and errors.
func (s *IDSet) Name() string { return s.name }

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id string) bool {
	id = s.normalize(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Add inserts id and persists the set. It returns false when id was already present.
func (s *IDSet) Add(id string) (bool, error) {
	id = s.normalize(id)
	if id == "" {
		return false, fmt.Errorf("%w: empty %s id", shared.ErrInvalidInput, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false, nil
	}
	s.ids[id] = struct{}{}
	if err := s.save(); err != nil {
		delete(s.ids, id)
		return false, err
	}
	return true, nil
}

// Remove deletes id and persists the set. It returns false when id was not present.
func (s *IDSet) Remove(id string) (bool, error) {
	id = s.normalize(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return false, nil
	}
	delete(s.ids, id)
	if err := s.save(); err != nil {
		s.ids[id] = struct{}{}
		return false, err
	}
	return true, nil
}

// List returns the members in sorted order.
func (s *IDSet) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Len returns the number of members.
func (s *IDSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *IDSet) sorted() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// save must be called with the write lock held (or before the set is shared).
func (s *IDSet) save() error {
	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.name, err)
	}
	if err := shared.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", s.name, err)
	}
	return nil
}
