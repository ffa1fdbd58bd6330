// Package auth guards the HTTP API.
//
// It supports two modes:
//   - "basic": every non-public request must carry HTTP Basic credentials (default)
//   - "none": no credentials are checked
//
// # Configuration
//
//	AUTH_MODE=basic
//	BASIC_USER=librarian
//	BASIC_PASS=<plaintext>        # or
//	BASIC_PASS_HASH=<bcrypt hash> # preferred when set
//
// # Acting user
//
// Credentials identify the client application, not a library member. Handlers
// that care who is acting (returning a book, audit entries) read the member ID
// from the X-User-Id header:
//
//	actorID := auth.GetUserID(c) // "" when the header is absent
package auth
