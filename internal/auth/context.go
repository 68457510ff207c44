package auth

import (
	"context"
)

type contextKey string

const reviewerIDKey contextKey = "reviewerID"

// ContextWithReviewerID returns a new context carrying the acting reviewer's
// identity. The service does not verify it; authentication is an external
// concern.
func ContextWithReviewerID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, reviewerIDKey, id)
}

// ReviewerIDFromContext retrieves the acting reviewer's identity, if any.
func ReviewerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value := ctx.Value(reviewerIDKey)
	if value == nil {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
