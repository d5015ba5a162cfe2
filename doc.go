// Package admitme is the admitMe backend: session tokens, route gates and
// the user listing API.
//
// Sessions:
//   - TokenService signs HS256 tokens carrying the user email. The token is
//     stored in an HttpOnly cookie named "token" by RouteAuthenticator.Login
//     and removed by Logout. Tokens are stateless, there is no revocation.
//   - SessionRoute verifies the cookie on every request and places the claims
//     in the router locals and in the request context (see GetClaims).
//   - Claims keep the email as the user typed it. Store lookups normalize it.
//
// Authorization:
//   - AdminRoute looks the session identity up in the user store on every
//     request. A missing record or a non admin role yields 403. A store that
//     cannot answer yields 503, never 403.
//
// Activity sinks:
//   - ActivitySink receives login, logout, rejection and denial events. Sinks
//     run best effort: errors are logged and never fail the request.
package admitme
