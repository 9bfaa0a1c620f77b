/*
Package authsdk is a Go client for the session gate auth service.

An SDKClient covers the public endpoints. A successful login returns a
Session that carries the token pair and refreshes it once when the service
answers token_expired:

	client := authsdk.NewSDKClient("https://auth.example.com")

	if _, err := client.SendPhoneCode(ctx, "13800138000"); err != nil {
		return err
	}
	session, err := client.PhoneLogin(ctx, "13800138000", code)
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)

	// Revoke both tokens.
	err = session.Logout(ctx)

# Errors

Every failed call returns an *APIError. The service's error codes are
exported as constants and as sentinel values that match with errors.Is:

	if errors.Is(err, authsdk.ErrTokenRevoked) {
		// log in again
	}

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.CodeRateLimited {
		time.Sleep(apiErr.RetryAfter)
	}

The same APIError values are written by the service itself, so the wire
shape is defined in one place.
*/
package authsdk
