package session

// NearbyOf returns the ids of every other live participant within the given
// radius of the named participant, by squared Euclidean distance (no square
// root per pair). Membership is strictly other participants, never self.
//
// The scan is linear in the number of live participants, which is acceptable
// for a single shared room; a spatial grid could replace it behind the same
// signature.
//
// Postcondition: Returns the nearby id set, or ErrNotFound for an unknown id.
func (r *Registry) NearbyOf(id string, radius int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	self, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}

	rr := radius * radius
	var nearby []string
	for otherID, e := range r.entries {
		if otherID == id {
			continue
		}
		dx := self.participant.X - e.participant.X
		dy := self.participant.Y - e.participant.Y
		if dx*dx+dy*dy <= rr {
			nearby = append(nearby, otherID)
		}
	}
	return nearby, nil
}
