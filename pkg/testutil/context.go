package testutil

import (
	"net/http"
	"time"

	id "janani/pkg/domain"
	"janani/pkg/requestcontext"
)

// WithActor injects an authenticated caller into the request context,
// simulating what the auth middleware does for a valid token. An invalid
// actor ID is silently ignored so tests can also exercise the unauthenticated
// path.
func WithActor(req *http.Request, actorID string, role id.Role) *http.Request {
	parsed, err := id.ParseActorID(actorID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), parsed, role))
}

// WithRequestTime pins the request clock, as the request-time middleware
// would.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
