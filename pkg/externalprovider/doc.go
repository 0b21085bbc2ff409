// Package externalprovider runs the OAuth2 authorization code flow against
// external identity providers and hands the verified profile to the auth
// engine.
//
// Google is built in (OpenID Connect discovery, PKCE S256, id_token
// verification). Pending flows are tracked in a StateStore: in memory for a
// single instance, or Redis when several instances share traffic.
//
// # Basic Usage
//
//	google, err := externalprovider.NewGoogleProvider(ctx, externalprovider.GoogleConfig{
//		ClientID:     clientID,
//		ClientSecret: clientSecret,
//		RedirectURL:  "https://app.example.com/api/v1/auth/google/callback",
//	})
//
//	service := externalprovider.NewExternalProviderService(
//		externalprovider.WithProvider(google),
//		externalprovider.WithStateStore(externalprovider.NewRedisStateStore(rdb)),
//	)
//
//	// Step 1: send the user to the provider
//	authURL, err := service.InitiateOAuth2Flow(ctx, "google", "")
//
//	// Step 2: the provider redirects back with code and state
//	profile, err := service.HandleOAuth2Callback(ctx, "google", code, state)
//	result, err := authService.CompleteExternalLogin(ctx, *profile)
//
// A state is single use and expires after DefaultStateExpiration. Profiles
// whose email the provider has not verified are rejected, because the email
// is what links an external login to an existing account.
package externalprovider
