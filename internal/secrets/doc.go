// Package secrets persists bodhi's setup state: the application status, the
// authorization flag and the OAuth client registration obtained from the
// identity provider.
//
// Two implementations of Store are provided. SQLiteStore is the durable one:
// values are encrypted with AES-256-GCM using a key file stored next to the
// database, and writes are committed in transactions. MemoryStore keeps the
// same semantics without durability.
//
// Update groups several writes into one atomic step, which is how the setup
// controller persists the registration, the flag and the status together.
// Exclusive runs a function while holding a store-scoped lock so that a
// read-check-write sequence cannot interleave with another one.
package secrets
