package hub

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TokenizerConfig is the file a chat template is read from.
const TokenizerConfig = "tokenizer_config.json"

// Repo identifies a model repository as owner/name.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses "owner/name". Both parts must be non-empty and free of
// further separators.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repo %q: expected owner/name", s)
	}
	if strings.ContainsAny(s, ` \`) || owner == ".." || name == ".." {
		return Repo{}, fmt.Errorf("invalid repo %q: contains forbidden characters", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// MustParseRepo is ParseRepo for compile-time constants.
func MustParseRepo(s string) Repo {
	r, err := ParseRepo(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// cacheDir is the repository directory inside the hub cache.
func (r Repo) cacheDir(root string) string {
	return filepath.Join(root, "models--"+r.Owner+"--"+r.Name)
}

// File is a repository file present in the local cache.
type File struct {
	Root     string
	Repo     Repo
	Filename string
	Snapshot string
}

// Path is the absolute location of the file on disk.
func (f File) Path() string {
	return filepath.Join(f.Repo.cacheDir(f.Root), "snapshots", f.Snapshot, filepath.FromSlash(f.Filename))
}

func (f File) String() string {
	return fmt.Sprintf("%s/%s@%s", f.Repo, f.Filename, f.Snapshot)
}
