package analyze

// NameSet is a set of identifier names that remembers insertion order
type NameSet struct {
	index map[string]int
	names []string
}

// NewNameSet creates a set holding names
func NewNameSet(names ...string) *NameSet {
	s := &NameSet{index: make(map[string]int)}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name and reports whether it was new
func (s *NameSet) Add(name string) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	return true
}

// Has reports whether name is in the set
func (s *NameSet) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Len returns the number of names
func (s *NameSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the names in insertion order
func (s *NameSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Intersect returns the names of s also in other, in the order of s
func (s *NameSet) Intersect(other *NameSet) []string {
	var out []string
	for _, name := range s.Names() {
		if other.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
