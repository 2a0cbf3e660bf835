// Package externalprovider implements Google sign-in.
//
// # Overview
//
// The flow is the plain OAuth2 authorization code grant performed against
// Google's auth, token and userinfo endpoints:
//
//  1. GET /google stores a random single use state (memory or Redis,
//     key "oauth_state:<state>", 10 minutes) and redirects to Google.
//  2. GET /auth/google/callback consumes the state, exchanges the code and
//     fetches the profile. Profiles without verified_email are refused.
//  3. Reconcile applies the account policy and issues the same session a
//     password login would.
//
// # Account policy
//
//   - Unknown email: a federated account is created with no password.
//   - Email owned by a password account: PASSWORD_LOGIN_REQUIRED (409).
//     The accounts are never linked automatically.
//   - Email owned by the same Google id: signed in.
//   - Email or Google id bound elsewhere: ALREADY_EXISTS (409).
//
// # Basic Usage
//
//	provider := externalprovider.NewGoogleProvider(clientID, secret, callbackURL)
//	svc := externalprovider.NewExternalProviderService(provider,
//		externalprovider.NewRedisStateRepository(rdb), loginService)
//	h := externalprovider.NewHandle(svc, cookies, pages, limiter, "/users")
//	r.Route("/users", h.Routes)
package externalprovider
