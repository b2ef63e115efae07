package domain

import (
	"slices"

	"github.com/samber/lo"
)

// Membership is the set of identities known to one admin façade. It is not safe for
// concurrent use; its owner serializes access.
type Membership struct {
	names map[string]struct{}
}

func NewMembership(names ...string) *Membership {
	m := &Membership{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		m.Add(name)
	}

	return m
}

func (m *Membership) Add(name string) {
	m.names[name] = struct{}{}
}

func (m *Membership) Remove(name string) {
	delete(m.names, name)
}

func (m *Membership) Contains(name string) bool {
	_, ok := m.names[name]

	return ok
}

func (m *Membership) Len() int {
	return len(m.names)
}

// Names returns the members in sorted order.
func (m *Membership) Names() []string {
	names := lo.Keys(m.names)
	slices.Sort(names)

	return names
}
