package api

import "github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/domain"

type RouteTarget struct {
	ProfileID string `json:"profileId" binding:"required"`
	Model     string `json:"model"`
}

// RoutingRequest replaces the routing policy wholesale.
type RoutingRequest struct {
	Primary     *RouteTarget  `json:"primary"`
	Fallbacks   []RouteTarget `json:"fallbacks" binding:"max=20,dive"`
	MaxAttempts int           `json:"maxAttempts"`
}

func (r *RoutingRequest) ToDomain() domain.Routing {
	out := domain.Routing{MaxAttempts: r.MaxAttempts}
	if r.Primary != nil {
		out.Primary = &domain.RouteTarget{ProfileID: r.Primary.ProfileID, Model: r.Primary.Model}
	}
	if r.Fallbacks != nil {
		out.Fallbacks = make([]domain.RouteTarget, 0, len(r.Fallbacks))
		for _, fb := range r.Fallbacks {
			out.Fallbacks = append(out.Fallbacks, domain.RouteTarget{ProfileID: fb.ProfileID, Model: fb.Model})
		}
	}
	return out
}

type RoutingResponse struct {
	Routing domain.Routing `json:"routing"`
	// Attempts is the ordered, capped list a dispatcher would try.
	Attempts []domain.RouteTarget `json:"attempts"`
}

func NewRoutingResponse(r domain.Routing) RoutingResponse {
	return RoutingResponse{Routing: r, Attempts: r.Attempts()}
}
