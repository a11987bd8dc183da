// Package crew is the user lifecycle and authorization engine of the
// drilling services console: companies, their projects and the people
// assigned to them.
//
// User lifecycle:
//   - Users register through a join code (office, field, both) or as
//     unaffiliated talent and wait in PENDING_APPROVAL until an admin of the
//     company approves them with an ApprovalBundle.
//   - UserStateMachine owns the status graph. Every status change, edit,
//     transfer and removal goes through Service and is written in one bun
//     transaction together with its audit entries, guarded by an optimistic
//     version check.
//
// Authorization:
//   - Authorizer resolves named capabilities (CapApproveStaff, CapEditUser,
//     ...) against the acting user and a Scope. Everyone except the creator
//     is confined to their own company and inactive actors hold nothing.
//
// Activity sinks:
//   - ActivitySink receives an ActivityEvent after each committed change.
//     Sinks run best-effort (errors are logged) so they can forward to a
//     queue or websocket without blocking the lifecycle.
//
// Sessions:
//   - Authenticate checks credentials and TokenService signs the session
//     token consumed by the api package.
package crew
