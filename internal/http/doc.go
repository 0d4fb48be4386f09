// Package http exposes the counseling services as a JSON API on a chi router.
//
// Routes:
//   - POST /api/auth/signup, POST /api/auth/login: create an account or sign
//     in. Response: {"token","expires_at","user"}.
//   - POST /api/auth/logout: revokes the bearer token used for the request.
//   - GET /api/rooms, POST /api/rooms, POST /api/rooms/join: list, create and
//     join rooms exchanging the `roomDTO` payload defined in room_handler.go.
//   - GET /api/rooms/{roomID}, DELETE /api/rooms/{roomID},
//     DELETE /api/rooms/{roomID}/leave: room detail, deletion by the owning
//     counselor and leaving by a client.
//   - POST /api/rooms/{roomID}/dbt-cards, GET /api/rooms/{roomID}/dbt-cards/my,
//     GET /api/rooms/{roomID}/dbt-cards: diary card submission and listings,
//     optionally filtered by `date` (YYYY-MM-DD) and `client_id`.
//   - GET /api/profile, PUT /api/profile: the caller's profile.
//   - GET /healthz and, when metrics are enabled, GET /metrics.
//
// Every /api route other than signup and login requires an
// `Authorization: Bearer <token>` header. Errors are returned as
// {"error_code","message","errors"} with Korean messages.
package http
