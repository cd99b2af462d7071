// Package approval gates account access behind administrator review.
//
// Lifecycle:
//   - New accounts in the subject role start pending by omission: no status
//     row exists until an administrator acts. Accounts in any other role are
//     pre-approved and never gated.
//   - StateMachine owns the transition graph. Approve and block are the only
//     stored states; every write records which administrator made the call.
//     Transitions come in through StatusTransitionHandler, which validates a
//     single use action token before touching the store.
//
// Enforcement:
//   - Auther verifies credentials first and only then consults the effective
//     status, so a denied login never reveals whether the password matched.
//     Pending and blocked accounts are refused with distinct error codes.
//   - Gate covers the other entry points: password resets for unapproved
//     accounts are refused with a single generic error.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the state machine,
//     the authenticator, and the command handlers. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package approval
