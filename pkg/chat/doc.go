// Package chat defines the chat template read from a model's
// tokenizer_config.json.
//
// A tokenizer configuration carries the template either as a single Jinja
// string or as a list of named variants, and the special tokens either as
// plain strings or as added-token objects ({"content": "..."}). Parse accepts
// all of these forms; Validate checks that the result is usable.
package chat
