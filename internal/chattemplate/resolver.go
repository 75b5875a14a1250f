package chattemplate

import (
	"context"
	"fmt"
	"os"

	"bodhi/internal/hub"
	"bodhi/pkg/chat"
	"bodhi/pkg/logging"
)

// Locator finds repository files and embedded templates.
type Locator interface {
	FindLocalFile(repo hub.Repo, filename string, snapshot *string) (*hub.File, error)
	Download(ctx context.Context, repo hub.Repo, filename string, snapshot *string) (*hub.File, error)
	ModelChatTemplate(alias string) (*chat.Template, error)
}

// Aliases looks up alias records.
type Aliases interface {
	Get(name string) (hub.Alias, bool)
}

// Resolver turns a Source into a validated chat template.
type Resolver struct {
	locator Locator
	aliases Aliases
}

// NewResolver creates a resolver. aliases may be nil if ResolveAlias is not
// used.
func NewResolver(locator Locator, aliases Aliases) *Resolver {
	return &Resolver{locator: locator, aliases: aliases}
}

// Resolve returns the template for src. File-based sources are read from the
// local cache only; use EnsureAvailable to fetch them first. alias is only
// consulted for Embedded sources.
//
// Failures are *Error values: KindNotFound when the file is not cached,
// KindParse when tokenizer_config.json is not valid JSON, KindValidation when
// required fields are missing or mistyped, and KindUnknownAlias for an
// Embedded source with an unknown alias.
func (r *Resolver) Resolve(ctx context.Context, src Source, alias string) (*chat.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, &Error{Kind: KindNotFound, Source: "<nil>", Err: fmt.Errorf("no chat template source")}
	}
	return src.resolve(ctx, r.locator, alias)
}

// EnsureAvailable downloads the tokenizer configuration behind src into the
// cache. Embedded sources need nothing and return nil, nil.
func (r *Resolver) EnsureAvailable(ctx context.Context, src Source) (*hub.File, error) {
	if src == nil {
		return nil, &Error{Kind: KindNotFound, Source: "<nil>", Err: fmt.Errorf("no chat template source")}
	}
	return src.ensureAvailable(ctx, r.locator)
}

// ResolveAlias looks up the alias, parses its chat_template value and
// resolves it.
func (r *Resolver) ResolveAlias(ctx context.Context, name string) (*chat.Template, error) {
	if r.aliases == nil {
		return nil, &Error{Kind: KindUnknownAlias, Source: name, Err: &hub.UnknownAliasError{Alias: name}}
	}
	a, ok := r.aliases.Get(name)
	if !ok {
		return nil, &Error{Kind: KindUnknownAlias, Source: name, Err: &hub.UnknownAliasError{Alias: name}}
	}
	src, err := ParseSource(a.ChatTemplate)
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Source: a.ChatTemplate, Err: fmt.Errorf("alias %s: %w", name, err)}
	}
	return r.Resolve(ctx, src, name)
}

// resolveFromRepo reads, parses and validates the cached tokenizer
// configuration of repo.
func resolveFromRepo(loc Locator, repo hub.Repo, source string) (*chat.Template, error) {
	file, err := loc.FindLocalFile(repo, hub.TokenizerConfig, nil)
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Source: source, Err: err}
	}

	data, err := os.ReadFile(file.Path())
	if err != nil {
		return nil, &Error{Kind: KindNotFound, Source: source, Err: err}
	}

	tmpl, err := chat.Parse(data)
	if err != nil {
		return nil, &Error{Kind: KindParse, Source: source, Err: err}
	}
	if err := tmpl.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Source: source, Err: err}
	}

	logging.Debug("ChatTemplate", "Resolved chat template %s from %s", source, file)
	return tmpl, nil
}

func download(ctx context.Context, loc Locator, repo hub.Repo, source string) (*hub.File, error) {
	file, err := loc.Download(ctx, repo, hub.TokenizerConfig, nil)
	if err != nil {
		return nil, &Error{Kind: KindDownload, Source: source, Err: err}
	}
	return file, nil
}

// classify maps an embedded template error onto a Kind.
func classify(err error) Kind {
	switch {
	case hub.IsUnknownAlias(err):
		return KindUnknownAlias
	case chat.IsParseError(err):
		return KindParse
	case chat.IsValidationError(err):
		return KindValidation
	default:
		return KindNotFound
	}
}
