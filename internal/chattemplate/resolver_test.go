package chattemplate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodhi/internal/hub"
	"bodhi/pkg/chat"
)

type findCall struct {
	repo     hub.Repo
	filename string
	snapshot *string
}

// fakeLocator serves files written under root and records every call.
type fakeLocator struct {
	root     string
	files    map[hub.Repo]string
	embedded map[string]*chat.Template
	dlErr    error

	finds     []findCall
	downloads []findCall
	embeds    []string
}

func newFakeLocator(t *testing.T) *fakeLocator {
	return &fakeLocator{
		root:     t.TempDir(),
		files:    make(map[hub.Repo]string),
		embedded: make(map[string]*chat.Template),
	}
}

func (f *fakeLocator) put(t *testing.T, repo hub.Repo, content string) {
	t.Helper()
	file := hub.File{Root: f.root, Repo: repo, Filename: hub.TokenizerConfig, Snapshot: "abc"}
	require.NoError(t, os.MkdirAll(filepath.Dir(file.Path()), 0o755))
	require.NoError(t, os.WriteFile(file.Path(), []byte(content), 0o644))
	f.files[repo] = content
}

func (f *fakeLocator) FindLocalFile(repo hub.Repo, filename string, snapshot *string) (*hub.File, error) {
	f.finds = append(f.finds, findCall{repo: repo, filename: filename, snapshot: snapshot})
	if _, ok := f.files[repo]; !ok {
		return nil, &hub.NotFoundError{Repo: repo, Filename: filename}
	}
	return &hub.File{Root: f.root, Repo: repo, Filename: filename, Snapshot: "abc"}, nil
}

func (f *fakeLocator) Download(_ context.Context, repo hub.Repo, filename string, snapshot *string) (*hub.File, error) {
	f.downloads = append(f.downloads, findCall{repo: repo, filename: filename, snapshot: snapshot})
	if f.dlErr != nil {
		return nil, &hub.DownloadError{Repo: repo, Filename: filename, Err: f.dlErr}
	}
	return &hub.File{Root: f.root, Repo: repo, Filename: filename, Snapshot: "abc"}, nil
}

func (f *fakeLocator) ModelChatTemplate(alias string) (*chat.Template, error) {
	f.embeds = append(f.embeds, alias)
	t, ok := f.embedded[alias]
	if !ok {
		return nil, &hub.UnknownAliasError{Alias: alias}
	}
	return t, nil
}

type fakeAliases map[string]hub.Alias

func (a fakeAliases) Get(name string) (hub.Alias, bool) {
	v, ok := a[name]
	return v, ok
}

const validConfig = `{"chat_template": "{{ messages }}", "bos_token": "<s>", "eos_token": "</s>"}`

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "embedded", want: Embedded{}},
		{in: "llama3", want: ByID{ID: Llama3}},
		{in: "command-r", want: ByID{ID: CommandR}},
		{in: "myorg/my-model", want: ByRepo{Repo: hub.Repo{Owner: "myorg", Name: "my-model"}}},
		{in: "mistral", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestIDs_AllHaveRepos(t *testing.T) {
	ids := IDs()
	assert.Len(t, ids, 9)
	for _, id := range ids {
		_, ok := id.Repo()
		assert.True(t, ok, id)
	}
}

func TestResolve_ByRepo(t *testing.T) {
	loc := newFakeLocator(t)
	repo := hub.Repo{Owner: "myorg", Name: "my-model"}
	loc.put(t, repo, validConfig)

	tmpl, err := NewResolver(loc, nil).Resolve(context.Background(), ByRepo{Repo: repo}, "ignored")
	require.NoError(t, err)
	assert.Equal(t, chat.Token("<s>"), tmpl.BosToken)

	require.Len(t, loc.finds, 1)
	assert.Equal(t, repo, loc.finds[0].repo)
	assert.Equal(t, "tokenizer_config.json", loc.finds[0].filename)
	assert.Nil(t, loc.finds[0].snapshot)
	assert.Empty(t, loc.embeds)
}

func TestResolve_ByIDUsesCanonicalRepo(t *testing.T) {
	loc := newFakeLocator(t)
	repo, _ := Llama3.Repo()
	loc.put(t, repo, validConfig)

	_, err := NewResolver(loc, nil).Resolve(context.Background(), ByID{ID: Llama3}, "")
	require.NoError(t, err)
	require.Len(t, loc.finds, 1)
	assert.Equal(t, repo, loc.finds[0].repo)
}

func TestResolve_Embedded(t *testing.T) {
	loc := newFakeLocator(t)
	want, err := chat.Parse([]byte(validConfig))
	require.NoError(t, err)
	loc.embedded["tinyllama:embedded"] = want

	got, err := NewResolver(loc, nil).Resolve(context.Background(), Embedded{}, "tinyllama:embedded")
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Empty(t, loc.finds, "embedded sources never touch the file cache")
	assert.Empty(t, loc.downloads)

	_, err = NewResolver(loc, nil).Resolve(context.Background(), Embedded{}, "other")
	assert.Equal(t, KindUnknownAlias, KindOf(err))
	assert.True(t, hub.IsUnknownAlias(err))
}

func TestResolve_Errors(t *testing.T) {
	repo := hub.Repo{Owner: "myorg", Name: "my-model"}

	tests := []struct {
		name    string
		content *string
		kind    Kind
		check   func(t *testing.T, err error)
	}{
		{
			name: "not cached",
			kind: KindNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, hub.IsNotFound(err))
			},
		},
		{
			name:    "invalid json",
			content: strPtr(`{"chat_template": `),
			kind:    KindParse,
			check: func(t *testing.T, err error) {
				assert.True(t, chat.IsParseError(err))
			},
		},
		{
			name:    "invalid fields",
			content: strPtr(`{"bos_token": 1, "eos_token": "</s>"}`),
			kind:    KindValidation,
			check: func(t *testing.T, err error) {
				var verr *chat.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, []string{"bos_token", "chat_template"}, verr.Fields())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := newFakeLocator(t)
			if tt.content != nil {
				loc.put(t, repo, *tt.content)
			}
			_, err := NewResolver(loc, nil).Resolve(context.Background(), ByRepo{Repo: repo}, "")
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			tt.check(t, err)
		})
	}
}

func TestEnsureAvailable(t *testing.T) {
	loc := newFakeLocator(t)
	r := NewResolver(loc, nil)
	repo := hub.Repo{Owner: "myorg", Name: "my-model"}

	f, err := r.EnsureAvailable(context.Background(), ByRepo{Repo: repo})
	require.NoError(t, err)
	require.NotNil(t, f)
	require.Len(t, loc.downloads, 1)
	assert.Equal(t, repo, loc.downloads[0].repo)
	assert.Equal(t, hub.TokenizerConfig, loc.downloads[0].filename)
	assert.Nil(t, loc.downloads[0].snapshot)

	f, err = r.EnsureAvailable(context.Background(), Embedded{})
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Len(t, loc.downloads, 1, "embedded sources download nothing")

	loc.dlErr = errors.New("connection refused")
	_, err = r.EnsureAvailable(context.Background(), ByID{ID: Gemma})
	assert.Equal(t, KindDownload, KindOf(err))
	assert.True(t, hub.IsDownloadError(err))
}

func TestResolveAlias(t *testing.T) {
	loc := newFakeLocator(t)
	repo := hub.Repo{Owner: "myorg", Name: "my-model"}
	loc.put(t, repo, validConfig)

	aliases := fakeAliases{
		"mine":   {Alias: "mine", ChatTemplate: "myorg/my-model"},
		"broken": {Alias: "broken", ChatTemplate: "nonsense"},
	}
	r := NewResolver(loc, aliases)

	_, err := r.ResolveAlias(context.Background(), "mine")
	require.NoError(t, err)

	_, err = r.ResolveAlias(context.Background(), "absent")
	assert.Equal(t, KindUnknownAlias, KindOf(err))

	_, err = r.ResolveAlias(context.Background(), "broken")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func strPtr(s string) *string { return &s }
