package favorites

import (
	"strings"
	"sync"

	"dog-match/internal/ports/dogs"
)

// Store es el set de favoritos de una sesión: orden de inserción estable,
// membership O(1). Solo acepta perros ya hidratados.
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]dogs.Dog
}

func NewStore() *Store {
	return &Store{byID: make(map[string]dogs.Dog)}
}

// Add es idempotente.
func (s *Store) Add(d dogs.Dog) {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(id, d)
}

// Remove es idempotente; conserva el orden relativo del resto.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(strings.TrimSpace(id))
}

// Toggle agrega si falta y quita si está. Devuelve true si quedó agregado.
func (s *Store) Toggle(d dogs.Dog) bool {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; ok {
		s.removeLocked(id)
		return false
	}
	s.addLocked(id, d)
	return true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[string]dogs.Dog)
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs devuelve una copia (snapshot) en orden de inserción.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// List devuelve los perros favoritos en orden de inserción.
func (s *Store) List() []dogs.Dog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dogs.Dog, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) addLocked(id string, d dogs.Dog) {
	if _, ok := s.byID[id]; ok {
		return
	}
	d.ID = id
	s.byID[id] = d
	s.order = append(s.order, id)
}

func (s *Store) removeLocked(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}
