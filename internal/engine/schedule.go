package engine

// schedule is the round-robin ring of active machines.
//
// Membership in the schedule is what "alive" means; nothing else records
// liveness. The machine currently being stepped has been popped from the
// order but is still a member until it halts.
//
// INVARIANT: members == order ∪ {running} (running may be NoMachine).
type schedule struct {
	members map[MachineID]*Machine
	order   []MachineID
	running MachineID
}

func newSchedule() *schedule {
	return &schedule{
		members: make(map[MachineID]*Machine),
		order:   make([]MachineID, 0, 16),
	}
}

// Append adds a machine at the tail.
func (s *schedule) Append(m *Machine) {
	s.members[m.id] = m
	s.order = append(s.order, m.id)
}

// Contains reports whether id is active.
func (s *schedule) Contains(id MachineID) bool {
	_, ok := s.members[id]
	return ok
}

// Get returns the active machine with the given id.
func (s *schedule) Get(id MachineID) (*Machine, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Len returns the number of active machines.
func (s *schedule) Len() int {
	return len(s.members)
}

// PopHead removes the head of the order and marks it running.
// The machine stays a member.
func (s *schedule) PopHead() (*Machine, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	id := s.order[0]
	if len(s.order) == 1 {
		s.order = s.order[:0]
	} else {
		s.order = s.order[1:]
	}
	s.running = id
	return s.members[id], true
}

// Requeue appends the running machine to the tail if it is still a member.
// Returns false if it halted during its step.
func (s *schedule) Requeue() bool {
	id := s.running
	s.running = NoMachine
	if id == NoMachine || !s.Contains(id) {
		return false
	}
	s.order = append(s.order, id)
	return true
}

// Remove drops a machine from the active set. Removing an absent machine
// is a no-op.
func (s *schedule) Remove(id MachineID) bool {
	if !s.Contains(id) {
		return false
	}
	delete(s.members, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Each visits active machines in schedule order: the queued order first,
// then the running machine, which will be requeued at the tail.
func (s *schedule) Each(fn func(*Machine)) {
	for _, id := range s.order {
		fn(s.members[id])
	}
	if s.running != NoMachine {
		if m, ok := s.members[s.running]; ok {
			fn(m)
		}
	}
}

// IDs returns active machine IDs in schedule order.
func (s *schedule) IDs() []MachineID {
	ids := make([]MachineID, 0, len(s.members))
	s.Each(func(m *Machine) {
		ids = append(ids, m.id)
	})
	return ids
}
