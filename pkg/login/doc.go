// Package login is the authentication core: password registration and
// login, password change, the two phase password reset flow and session
// verification.
//
// # Overview
//
//   - LoginService validates input in a fixed order and returns coded errors
//     from pkg/errors, so handlers only translate them to responses.
//   - PasswordManager hashes with bcrypt or argon2id, recognizes either
//     format on verify and reports when a stored hash should be upgraded.
//   - Reset tokens are 32 random bytes, hex encoded; only their sha256 is stored.
//   - Session tokens carry the account's credential version. Changing or
//     resetting a password bumps it, which invalidates every older token.
//   - AuthMiddleware reads the token from "Authorization: Bearer" or the
//     "jwt" cookie, in RequirePage, RequireAPI or Optional mode.
//
// # Basic Usage
//
//	pm, _ := login.NewPasswordManager(login.NewBcryptHasher(12), 8)
//	svc := login.NewLoginService(repo, pm, tokens,
//		login.WithNotifier(notificationManager),
//		login.WithResetLinkBase("https://example.com/users/resetPassword"),
//	)
//	res, err := svc.Login(ctx, login.LoginParams{Email: email, Password: password})
//
// Unknown emails and wrong passwords return the same INVALID_CREDENTIALS
// error after the same hashing work.
package login
