// Package signup serves the registration form and POST /sign_up.
//
// Validation and account creation live in login.LoginService.Register;
// this package only binds JSON or form input, applies the registration
// rate limit and sets the session cookie on success.
//
//	h := signup.NewHandle(
//		signup.WithLoginService(loginService),
//		signup.WithCookieSetter(cookies),
//		signup.WithLimiter(limiter),
//		signup.WithPrefix("/users"),
//	)
//	r.Route("/users", h.Routes)
package signup
