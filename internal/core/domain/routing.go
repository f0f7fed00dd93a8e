package domain

import "fmt"

// MaxFallbacks bounds the fallback list accepted from clients.
const MaxFallbacks = 20

type RouteTarget struct {
	ProfileID string `json:"profileId"`
	Model     string `json:"model"`
}

type Routing struct {
	Primary     *RouteTarget  `json:"primary"`
	Fallbacks   []RouteTarget `json:"fallbacks"`
	MaxAttempts int           `json:"maxAttempts"`
}

func (r Routing) Clone() Routing {
	out := Routing{MaxAttempts: r.MaxAttempts}
	if r.Primary != nil {
		p := *r.Primary
		out.Primary = &p
	}
	if r.Fallbacks != nil {
		out.Fallbacks = append([]RouteTarget{}, r.Fallbacks...)
	}
	return out
}

// Normalize clamps maxAttempts to at least one and never leaves fallbacks nil.
func (r Routing) Normalize() Routing {
	out := r.Clone()
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.Fallbacks == nil {
		out.Fallbacks = []RouteTarget{}
	}
	return out
}

// Validate checks structural limits. Dangling profile references are allowed.
func (r Routing) Validate() error {
	if len(r.Fallbacks) > MaxFallbacks {
		return ValidationError(fmt.Sprintf("At most %d fallbacks are allowed", MaxFallbacks))
	}
	if r.Primary != nil && r.Primary.ProfileID == "" {
		return ValidationError("Primary target requires a profileId")
	}
	for _, fb := range r.Fallbacks {
		if fb.ProfileID == "" {
			return ValidationError("Fallback targets require a profileId")
		}
	}
	return nil
}

// WithoutProfile repairs routing after the profile with id was deleted.
// A primary pointing at it moves to the first remaining profile, keeping its
// model, or is cleared when nothing remains. Matching fallbacks are dropped.
func (r Routing) WithoutProfile(id string, remaining []*Profile) Routing {
	out := r.Clone()

	if out.Primary != nil && out.Primary.ProfileID == id {
		if len(remaining) == 0 {
			out.Primary = nil
		} else {
			out.Primary = &RouteTarget{ProfileID: remaining[0].ID, Model: r.Primary.Model}
		}
	}

	kept := make([]RouteTarget, 0, len(out.Fallbacks))
	for _, fb := range out.Fallbacks {
		if fb.ProfileID != id {
			kept = append(kept, fb)
		}
	}
	out.Fallbacks = kept

	return out.Normalize()
}

// Attempts returns the ordered targets a request would try, primary first,
// capped at maxAttempts.
func (r Routing) Attempts() []RouteTarget {
	n := r.Normalize()
	out := make([]RouteTarget, 0, n.MaxAttempts)
	if n.Primary != nil {
		out = append(out, *n.Primary)
	}
	for _, fb := range n.Fallbacks {
		if len(out) >= n.MaxAttempts {
			break
		}
		out = append(out, fb)
	}
	if len(out) > n.MaxAttempts {
		out = out[:n.MaxAttempts]
	}
	return out
}
