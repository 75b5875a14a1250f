// Package setup implements the one-time application setup.
//
// A fresh installation is in status "setup". Controller.Setup moves it to
// "ready" (no authorization) or "resource-admin" (registered with an identity
// provider) and rejects every later call with KindAlreadySetup. With
// authorization, the redirect URIs for the server address are registered
// first, and the registration, the authorization flag and the status are
// then written in a single store transaction. A failed registration leaves
// the store untouched.
package setup
