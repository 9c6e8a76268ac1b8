package history

import (
	"context"
	"time"

	"careerbot/internal/models"
)

// Store keeps the ordered turns of each (subject, feature) conversation.
// Turns are append-only; Clear drops the whole conversation.
type Store interface {
	Read(ctx context.Context, subject models.Subject, feature models.Feature) ([]models.Turn, error)
	Append(ctx context.Context, subject models.Subject, feature models.Feature, role models.Role, content string) ([]models.Turn, error)
	Clear(ctx context.Context, subject models.Subject, feature models.Feature) error
}

// Router dispatches to the durable store for users and the ephemeral one for anonymous sessions.
type Router struct {
	Users    Store
	Sessions Store
}

func NewRouter(users, sessions Store) *Router {
	return &Router{Users: users, Sessions: sessions}
}

func (r *Router) pick(subject models.Subject) Store {
	if subject.Authenticated() {
		return r.Users
	}
	return r.Sessions
}

func (r *Router) Read(ctx context.Context, subject models.Subject, feature models.Feature) ([]models.Turn, error) {
	return r.pick(subject).Read(ctx, subject, feature)
}

func (r *Router) Append(ctx context.Context, subject models.Subject, feature models.Feature, role models.Role, content string) ([]models.Turn, error) {
	return r.pick(subject).Append(ctx, subject, feature, role, content)
}

func (r *Router) Clear(ctx context.Context, subject models.Subject, feature models.Feature) error {
	return r.pick(subject).Clear(ctx, subject, feature)
}

// stamp returns now, moved forward to last when the clock went backwards.
func stamp(now, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}
