package engine

// sourceKey indexes targeted reactions: "when emitter emits typ".
type sourceKey struct {
	typ     string
	emitter MachineID
}

// reactionRegistry holds both reaction tables.
//
// Each reactor has at most one target state per key. Adding again
// overwrites (last writer wins); removing an absent entry is a no-op.
//
// Entries that mention halted machines are tolerated: liveness is checked
// through the schedule at use time. Entries owned by a halted reactor are
// purged by Forget.
type reactionRegistry struct {
	byType   map[string]map[MachineID]StateID
	bySource map[sourceKey]map[MachineID]StateID
}

func newReactionRegistry() *reactionRegistry {
	return &reactionRegistry{
		byType:   make(map[string]map[MachineID]StateID),
		bySource: make(map[sourceKey]map[MachineID]StateID),
	}
}

func (r *reactionRegistry) addType(typ string, reactor MachineID, state StateID) {
	reactors, ok := r.byType[typ]
	if !ok {
		reactors = make(map[MachineID]StateID)
		r.byType[typ] = reactors
	}
	reactors[reactor] = state
}

func (r *reactionRegistry) removeType(typ string, reactor MachineID) {
	reactors, ok := r.byType[typ]
	if !ok {
		return
	}
	delete(reactors, reactor)
	if len(reactors) == 0 {
		delete(r.byType, typ)
	}
}

func (r *reactionRegistry) addSource(typ string, emitter, reactor MachineID, state StateID) {
	key := sourceKey{typ: typ, emitter: emitter}
	reactors, ok := r.bySource[key]
	if !ok {
		reactors = make(map[MachineID]StateID)
		r.bySource[key] = reactors
	}
	reactors[reactor] = state
}

func (r *reactionRegistry) removeSource(typ string, emitter, reactor MachineID) {
	key := sourceKey{typ: typ, emitter: emitter}
	reactors, ok := r.bySource[key]
	if !ok {
		return
	}
	delete(reactors, reactor)
	if len(reactors) == 0 {
		delete(r.bySource, key)
	}
}

// lookup returns the reactor's target state for ev.
// The type table is consulted first; a general subscription wins over a
// targeted one.
func (r *reactionRegistry) lookup(reactor MachineID, ev Event) (StateID, bool) {
	if state, ok := r.byType[ev.Type][reactor]; ok {
		return state, true
	}
	if state, ok := r.bySource[sourceKey{typ: ev.Type, emitter: ev.Emitter}][reactor]; ok {
		return state, true
	}
	return "", false
}

// Forget removes every entry whose reactor is id. Returns the number of
// entries removed.
//
// Entries keyed by id as an emitter are kept: live children still need
// their ("halt", parent) reaction to fire on the parent's last broadcast.
func (r *reactionRegistry) Forget(id MachineID) int {
	removed := 0
	for typ, reactors := range r.byType {
		if _, ok := reactors[id]; ok {
			delete(reactors, id)
			removed++
			if len(reactors) == 0 {
				delete(r.byType, typ)
			}
		}
	}
	for key, reactors := range r.bySource {
		if _, ok := reactors[id]; ok {
			delete(reactors, id)
			removed++
			if len(reactors) == 0 {
				delete(r.bySource, key)
			}
		}
	}
	return removed
}

// Size returns the total number of registered reactions.
func (r *reactionRegistry) Size() int {
	n := 0
	for _, reactors := range r.byType {
		n += len(reactors)
	}
	for _, reactors := range r.bySource {
		n += len(reactors)
	}
	return n
}
