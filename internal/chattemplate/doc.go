// Package chattemplate resolves the chat template configured for a model
// alias.
//
// An alias names its template source as a well-known id (ByID), a model
// repository (ByRepo) or the template embedded in the alias record
// (Embedded). File-based sources read tokenizer_config.json from the local
// hub cache; EnsureAvailable fetches it beforehand.
package chattemplate
