// Package http provides HTTP handlers and middleware for the checklist API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a signed token. Body: {"username","password"}. Response:
//     {"token","expiresAt","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `checklist_token` cookie.
//   - POST /logout: clears the token cookie. Returns 204 No Content.
//   - GET /me: the authenticated account.
//   - GET|POST /users, GET|PUT|DELETE /users/{id}: administrator controlled accounts.
//   - GET|POST /clients, GET|PUT|DELETE /clients/{id}: client catalog, administrators only.
//   - GET|POST /locations, GET|PUT|DELETE /locations/{id}: locations, filterable by
//     ?clientId. Listing is open to every authenticated principal.
//   - /categories and /checklist-types: taxonomy CRUD with the same shape.
//   - GET|POST /checklists, GET|PUT|DELETE /checklists/{id}: checklist definitions.
//     Technicians only list the checklists currently due for them.
//   - PATCH /checklists/{id}/active: body {"active": bool}.
//   - GET /checklists/{id}/due?userId=: due status with its reason.
//   - GET /checklists/qrcodes?clientId= and GET /checklists/{id}/qrcode (image/png).
//   - GET /agenda?userId=: pending checklists, daily progress and overall stats.
//   - POST /executions: submits a completed checklist. 409 when it is not due,
//     expired or inactive.
//   - GET /executions and GET /executions/export: administrator listing and XLSX
//     export, filtered by from, to, clientId, userId and checklistId.
//   - POST /uploads/photos: multipart "photo" with checklistId and itemId; photos
//     are then served under /uploads/checklist-photos/.
//   - GET /healthz and GET /metrics: unauthenticated probes.
//
// Errors use the errorResponse payload defined in responder.go with messages in
// Brazilian Portuguese.
package http
