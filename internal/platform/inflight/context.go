package inflight

import (
	"context"
	"strings"
)

type submissionIDKey struct{}

// WithSubmissionID returns a context carrying the submission id.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, strings.TrimSpace(id))
}

// SubmissionID returns the id of the submission a request runs under, if any.
func SubmissionID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(submissionIDKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
