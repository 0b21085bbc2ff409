// Package auth is the identity resolution engine and its HTTP surface.
//
// AuthService owns every decision about identity records: password
// registration (replacing an abandoned unverified signup), password login,
// resolving or linking a provider-verified profile, email verification with
// expiring codes, code resend and token refresh. Collaborators (storage,
// hashing, codes, tokens, mail, clock) are injected with options.
//
// Handle exposes the engine under chi, and Middleware protects routes with
// access tokens, re-reading the identity from storage on each request.
//
//	svc := auth.NewAuthService(
//	    auth.WithRepository(repo),
//	    auth.WithTokenService(tokens),
//	    auth.WithMailer(mailer),
//	)
//	r.Mount("/api/v1/auth", auth.NewHandle(svc).Routes())
package auth
