// Package server exposes application setup over HTTP.
//
// Routes:
//
//	GET  /ping        health check, {"message":"pong"}
//	GET  /app/info    {"version","authz","status"}
//	POST /app/setup   {"authz": bool} -> {"status"}; 400 already_setup on repeat
//	GET  /app/login   redirect to the identity provider once registered
//
// Errors use the body {"error": {"message", "type", "code"}}.
package server
