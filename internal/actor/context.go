package actor

import (
	"context"
	"strings"
)

// Actor is the already-authenticated user acting on an order.
type Actor struct {
	ID           string   `json:"id"`
	Roles        []string `json:"roles"`
	Capabilities []string `json:"capabilities"`
}

// ContextKey is the request context key for the acting user.
type ContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ContextKey{}, a)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(ContextKey{}).(Actor)
	if !ok || strings.TrimSpace(a.ID) == "" {
		return Actor{}, false
	}
	return a, true
}

// HasRole reports whether the actor carries any of roles, case-insensitively.
func (a Actor) HasRole(roles ...string) bool {
	return containsFold(a.Roles, roles)
}

func (a Actor) HasCapability(capability string) bool {
	return containsFold(a.Capabilities, []string{capability})
}

// Subject is the casbin subject for this actor.
func (a Actor) Subject() string {
	return "user:" + strings.TrimSpace(a.ID)
}

// ParseList splits a comma separated header value, dropping blanks.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				return true
			}
		}
	}
	return false
}
