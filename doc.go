// Package auth implements the authentication and session lifecycle for the
// LeanCircle HR backend: JWT issuance and refresh rotation, password reset
// tokens, the request guard, and the HTTP session controller.
//
// Token model:
//   - Access tokens are short lived HS256 JWTs carrying the user id, email,
//     and role. They are stateless; the guard revalidates the identity on
//     every request.
//   - Refresh tokens are long lived HS256 JWTs signed with a separate secret
//     and persisted on the user row. A user holds at most one live refresh
//     token; login and refresh both rotate it, revoking the previous one.
//   - Password reset tokens are random strings returned to the caller once.
//     Only a bcrypt hash is stored, together with a short expiry.
//
// User lifecycle:
//   - Users carry a UserStatus field persisted via Bun. Only active accounts
//     authenticate; pending, suspended, and inactive accounts are rejected at
//     the guard and at login.
//   - UserStateMachine centralizes the transition graph, timestamps, hooks,
//     and persistence for status changes.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the session
//     manager and the state machine to describe login, logout, refresh, and
//     password events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package auth
