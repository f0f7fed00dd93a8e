package domain

// Aggregate is the persisted document: every profile plus the routing policy.
type Aggregate struct {
	Profiles []*Profile `json:"profiles"`
	Routing  Routing    `json:"routing"`
}

// NewAggregate returns the empty document used when nothing has been stored yet.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Profiles: []*Profile{},
		Routing:  Routing{}.Normalize(),
	}
}

func (a *Aggregate) Clone() *Aggregate {
	out := &Aggregate{
		Profiles: make([]*Profile, 0, len(a.Profiles)),
		Routing:  a.Routing.Clone(),
	}
	for _, p := range a.Profiles {
		out.Profiles = append(out.Profiles, p.Clone())
	}
	return out
}

// Normalize fills defaults after a load. It never invents profiles.
func (a *Aggregate) Normalize() {
	if a.Profiles == nil {
		a.Profiles = []*Profile{}
	}
	a.Routing = a.Routing.Normalize()
}

// FindProfile returns the index and profile with the given id, or -1 and nil.
func (a *Aggregate) FindProfile(id string) (int, *Profile) {
	for i, p := range a.Profiles {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// FirstProfileFor returns the first profile (in stored order) of the provider.
func (a *Aggregate) FirstProfileFor(kind ProviderKind) *Profile {
	for _, p := range a.Profiles {
		if p.Provider == kind {
			return p
		}
	}
	return nil
}

// ResolveTarget picks the profile an action or callback writes to: the
// requested one when it exists under the provider, else the provider's first.
func (a *Aggregate) ResolveTarget(kind ProviderKind, requestedID string) *Profile {
	if requestedID != "" && HasPrefixFor(requestedID, kind) {
		if _, p := a.FindProfile(requestedID); p != nil {
			return p
		}
	}
	return a.FirstProfileFor(kind)
}

// RemoveProfile deletes a profile and repairs routing. It reports whether anything was removed.
func (a *Aggregate) RemoveProfile(id string) bool {
	idx, _ := a.FindProfile(id)
	if idx < 0 {
		return false
	}
	a.Profiles = append(a.Profiles[:idx], a.Profiles[idx+1:]...)
	a.Routing = a.Routing.WithoutProfile(id, a.Profiles)
	return true
}

// SanitizeConfig returns a copy with every secret masked.
func SanitizeConfig(a *Aggregate) *Aggregate {
	out := a.Clone()
	for i, p := range out.Profiles {
		out.Profiles[i] = SanitizeProfile(p)
	}
	return out
}
