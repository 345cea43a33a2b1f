// Package middleware carries session tokens over HTTP.
//
// [CookieCodec] signs tokens into an HttpOnly cookie with gorilla/securecookie.
// [Guard] resolves the token of each request through Engine.Authenticate,
// stores the session in the request context, and maps engine errors to the
// engine status table. All session decisions stay in the engine.
package middleware
