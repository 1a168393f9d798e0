// Package http provides the JSON API, the server-sent-events channel and the
// chat webhook for the time-slot store.
//
// The router exposes the following endpoints:
//   - GET /projects?user_id={id}, POST /projects: project directory endpoints
//     exchanging the `projectDTO` payload defined in project_handler.go.
//   - POST /projects/{id}/timeslots: batch slot creation.
//   - PATCH /projects/{id}/timeslots: batch partial update.
//   - DELETE /projects/{id}/timeslots: batch delete.
//   - POST /projects/{id}/timeslots/merge: merge a batch into one slot.
//   - GET /projects/{id}/timeslots[?user_id={id}]: ordered slot listing for
//     the project or for one user within it.
//   - GET /events[?project_id={id}]: server-sent events stream of
//     `timeslots_updated` notifications, project-scoped when the query
//     parameter is present.
//   - POST /messages: chat webhook; the sender identity arrives in the
//     X-User-Handle (and optional X-User-First-Name, X-User-Last-Name,
//     X-User-Language) headers.
//
// Mutation endpoints answer `{"success":true,...}` on success and
// `{"success":false,"error":...}` on failure. Request/response DTOs live
// alongside their respective handlers so tests and documentation share the
// same ground truth.
package http
