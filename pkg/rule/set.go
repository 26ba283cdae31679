package rule

// Set is an ordered collection of rules with distinct ids.
type Set struct {
	Rules []*Rule
}

// NewSet creates a [Set] holding rules.
func NewSet(rules ...*Rule) *Set {
	return &Set{Rules: rules}
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.Rules)
}

// Get returns the rule with the given id, or nil.
func (s *Set) Get(id string) *Rule {
	if s == nil {
		return nil
	}

	for _, r := range s.Rules {
		if r.ID == id {
			return r
		}
	}

	return nil
}

// IDs returns the rule ids in set order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, s.Len())
	if s == nil {
		return ids
	}

	for _, r := range s.Rules {
		ids = append(ids, r.ID)
	}

	return ids
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}

	c := &Set{Rules: make([]*Rule, len(s.Rules))}
	for i, r := range s.Rules {
		c.Rules[i] = r.Clone()
	}

	return c
}
