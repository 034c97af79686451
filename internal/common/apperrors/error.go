// Package apperrors implements the error system used across the platform.
// Errors form chains: each domain package declares sentinel errors derived
// from a package base error, attaches an HTTP status code, and wraps lower
// level causes as requests travel up toward the route boundary. The standard
// error interface is preserved so errors.Is / errors.As work against any
// link in the chain.
package apperrors

// Error is the interface implemented by all application errors. Methods
// return Error so call sites can chain derivations.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a sentinel using the current error as template
	Msg(msg string) Error                  // new message, wraps the original
	MsgErr(msg string, err ...error) Error // new message, wraps original plus extra causes
	Err(err ...error) Error                // attaches causes, keeps the message
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped causes
	SetStatusCode(int) Error               // sets the HTTP status code mapped at the route boundary
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // full message including wrapped causes
	UnwrapAll() []error                    // all wrapped causes
}
