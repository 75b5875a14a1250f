package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	FieldChatTemplate = "chat_template"
	FieldBosToken     = "bos_token"
	FieldEosToken     = "eos_token"

	// DefaultName is the variant used when no template name is requested.
	DefaultName = "default"
)

// NamedTemplate is one entry of a multi-template tokenizer configuration.
type NamedTemplate struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// Versions holds either a single template or a list of named templates.
type Versions struct {
	Single string
	Named  []NamedTemplate
}

// IsZero reports whether no template is present.
func (v Versions) IsZero() bool {
	return v.Single == "" && len(v.Named) == 0
}

// Lookup returns the template called name. An empty name selects the default
// variant; a single-string template is the default.
func (v Versions) Lookup(name string) (string, bool) {
	if name == "" {
		name = DefaultName
	}
	if len(v.Named) == 0 {
		return v.Single, name == DefaultName && v.Single != ""
	}
	for _, t := range v.Named {
		if t.Name == name {
			return t.Template, true
		}
	}
	return "", false
}

// Names returns the available variant names.
func (v Versions) Names() []string {
	if len(v.Named) == 0 {
		if v.Single == "" {
			return nil
		}
		return []string{DefaultName}
	}
	names := make([]string, 0, len(v.Named))
	for _, t := range v.Named {
		names = append(names, t.Name)
	}
	return names
}

func (v Versions) MarshalJSON() ([]byte, error) {
	if len(v.Named) > 0 {
		return json.Marshal(v.Named)
	}
	return json.Marshal(v.Single)
}

func (v *Versions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var named []NamedTemplate
		if err := json.Unmarshal(data, &named); err != nil {
			return err
		}
		*v = Versions{Named: named}
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*v = Versions{Single: single}
	return nil
}

// Token is a special token. It decodes from a plain string or from an added
// token object and always encodes as a plain string.
type Token string

func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var added struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(data, &added); err != nil {
			return err
		}
		if added.Content == nil {
			return fmt.Errorf("added token has no content")
		}
		*t = Token(*added.Content)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Token(s)
	return nil
}

// Template is a validated chat template with its special tokens. Values
// returned by Parse must be checked with Validate before use.
type Template struct {
	ChatTemplate Versions `json:"chat_template"`
	BosToken     Token    `json:"bos_token,omitempty"`
	EosToken     Token    `json:"eos_token,omitempty"`

	// decode records fields that were present but had the wrong shape.
	decode []Violation
}

// Parse decodes a tokenizer configuration. Syntactically invalid JSON yields
// a ParseError; fields with the wrong type are reported by Validate. Unknown
// fields are ignored.
func Parse(data []byte) (*Template, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	t := &Template{}
	if msg, ok := raw[FieldChatTemplate]; ok && !isNull(msg) {
		if err := json.Unmarshal(msg, &t.ChatTemplate); err != nil {
			t.decode = append(t.decode, Violation{Field: FieldChatTemplate, Reason: "must be a string or a list of {name, template}"})
		}
	}
	if msg, ok := raw[FieldBosToken]; ok && !isNull(msg) {
		if err := json.Unmarshal(msg, &t.BosToken); err != nil {
			t.decode = append(t.decode, Violation{Field: FieldBosToken, Reason: "must be a string or an added token"})
		}
	}
	if msg, ok := raw[FieldEosToken]; ok && !isNull(msg) {
		if err := json.Unmarshal(msg, &t.EosToken); err != nil {
			t.decode = append(t.decode, Violation{Field: FieldEosToken, Reason: "must be a string or an added token"})
		}
	}
	return t, nil
}

// Validate returns a ValidationError listing every violated field, or nil.
func (t *Template) Validate() error {
	violations := append([]Violation(nil), t.decode...)
	failed := make(map[string]bool, len(violations))
	for _, v := range violations {
		failed[v.Field] = true
	}

	if !failed[FieldChatTemplate] {
		violations = append(violations, validateVersions(t.ChatTemplate)...)
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func validateVersions(v Versions) []Violation {
	if v.IsZero() {
		return []Violation{{Field: FieldChatTemplate, Reason: "is required"}}
	}
	if len(v.Named) == 0 {
		if strings.TrimSpace(v.Single) == "" {
			return []Violation{{Field: FieldChatTemplate, Reason: "must not be blank"}}
		}
		return nil
	}

	var out []Violation
	seen := make(map[string]bool, len(v.Named))
	for i, nt := range v.Named {
		switch {
		case nt.Name == "":
			out = append(out, Violation{Field: FieldChatTemplate, Reason: fmt.Sprintf("entry %d has no name", i)})
		case seen[nt.Name]:
			out = append(out, Violation{Field: FieldChatTemplate, Reason: fmt.Sprintf("duplicate name %q", nt.Name)})
		}
		seen[nt.Name] = true
		if strings.TrimSpace(nt.Template) == "" {
			out = append(out, Violation{Field: FieldChatTemplate, Reason: fmt.Sprintf("entry %d has a blank template", i)})
		}
	}
	return out
}

func isNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}
