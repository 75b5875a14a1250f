package chattemplate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bodhi/internal/hub"
	"bodhi/pkg/chat"
)

// EmbeddedValue is the alias record value selecting the embedded template.
const EmbeddedValue = "embedded"

// Source says where an alias gets its chat template from. It is one of
// ByID, ByRepo or Embedded; each variant carries its own resolution steps.
type Source interface {
	fmt.Stringer

	resolve(ctx context.Context, loc Locator, alias string) (*chat.Template, error)
	ensureAvailable(ctx context.Context, loc Locator) (*hub.File, error)
}

// ByID selects a well-known template by id.
type ByID struct {
	ID ID
}

// ByRepo reads tokenizer_config.json from a model repository.
type ByRepo struct {
	Repo hub.Repo
}

// Embedded uses the template stored with the alias itself.
type Embedded struct{}

func (s ByID) String() string { return string(s.ID) }
func (s ByRepo) String() string { return s.Repo.String() }
func (Embedded) String() string { return EmbeddedValue }

func (s ByID) resolve(ctx context.Context, loc Locator, _ string) (*chat.Template, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return resolveFromRepo(loc, repo, s.String())
}

func (s ByID) ensureAvailable(ctx context.Context, loc Locator) (*hub.File, error) {
	repo, err := s.repo()
	if err != nil {
		return nil, err
	}
	return download(ctx, loc, repo, s.String())
}

func (s ByID) repo() (hub.Repo, error) {
	r, ok := s.ID.Repo()
	if !ok {
		return hub.Repo{}, &Error{Kind: KindNotFound, Source: s.String(), Err: fmt.Errorf("unknown chat template id %q", s.ID)}
	}
	return r, nil
}

func (s ByRepo) resolve(_ context.Context, loc Locator, _ string) (*chat.Template, error) {
	return resolveFromRepo(loc, s.Repo, s.String())
}

func (s ByRepo) ensureAvailable(ctx context.Context, loc Locator) (*hub.File, error) {
	return download(ctx, loc, s.Repo, s.String())
}

func (s Embedded) resolve(_ context.Context, loc Locator, alias string) (*chat.Template, error) {
	tmpl, err := loc.ModelChatTemplate(alias)
	if err != nil {
		return nil, &Error{Kind: classify(err), Source: s.String(), Err: err}
	}
	return tmpl, nil
}

// ensureAvailable is a no-op: the template lives in the alias record.
func (Embedded) ensureAvailable(context.Context, Locator) (*hub.File, error) {
	return nil, nil
}

// ID names a template whose tokenizer configuration lives in a canonical
// repository.
type ID string

const (
	Llama3       ID = "llama3"
	Llama2       ID = "llama2"
	Llama2Legacy ID = "llama2-legacy"
	Phi3         ID = "phi3"
	Gemma        ID = "gemma"
	Deepseek     ID = "deepseek"
	CommandR     ID = "command-r"
	Openchat     ID = "openchat"
	Tinyllama    ID = "tinyllama"
)

var canonicalRepos = map[ID]hub.Repo{
	Llama3:       hub.MustParseRepo("meta-llama/Meta-Llama-3-8B-Instruct"),
	Llama2:       hub.MustParseRepo("meta-llama/Llama-2-13b-chat-hf"),
	Llama2Legacy: hub.MustParseRepo("mistralai/Mixtral-8x7B-Instruct-v0.1"),
	Phi3:         hub.MustParseRepo("microsoft/Phi-3-mini-4k-instruct"),
	Gemma:        hub.MustParseRepo("google/gemma-7b-it"),
	Deepseek:     hub.MustParseRepo("deepseek-ai/deepseek-llm-67b-chat"),
	CommandR:     hub.MustParseRepo("CohereForAI/c4ai-command-r-plus"),
	Openchat:     hub.MustParseRepo("openchat/openchat-3.6-8b-20240522"),
	Tinyllama:    hub.MustParseRepo("TinyLlama/TinyLlama-1.1B-Chat-v1.0"),
}

// Repo returns the canonical repository for the id.
func (id ID) Repo() (hub.Repo, bool) {
	r, ok := canonicalRepos[id]
	return r, ok
}

// IDs returns the known template ids, sorted.
func IDs() []ID {
	ids := make([]ID, 0, len(canonicalRepos))
	for id := range canonicalRepos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParseSource interprets an alias record's chat_template value: "embedded",
// a known id, or an owner/name repository.
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == EmbeddedValue {
		return Embedded{}, nil
	}
	if _, ok := canonicalRepos[ID(s)]; ok {
		return ByID{ID: ID(s)}, nil
	}
	if strings.Contains(s, "/") {
		repo, err := hub.ParseRepo(s)
		if err != nil {
			return nil, err
		}
		return ByRepo{Repo: repo}, nil
	}
	return nil, fmt.Errorf("unknown chat template %q: expected %q, a template id or owner/name", s, EmbeddedValue)
}
