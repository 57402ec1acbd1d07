package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"storynav/common"
	"storynav/misc"
)

// Credential keys kept in env file.
const (
	KeyClientID     = "DA_CLIENT_ID"
	KeyClientSecret = "DA_CLIENT_SECRET"
	KeyRedirectURI  = "DA_REDIRECT_URI"
	KeyRefreshToken = "DA_REFRESH_TOKEN"
	KeyAccessToken  = "DA_ACCESS_TOKEN"
	KeyOAuthScope   = "DA_OAUTH_SCOPE"
)

// CredentialVar describes single env file entry.
type CredentialVar struct {
	Name        string
	Description string
	Example     string
	Required    bool
	Secret      bool
}

// CredentialVars is the registry of known keys in the order they are written
// to a fresh env file.
var CredentialVars = []CredentialVar{
	{Name: KeyClientID, Description: "OAuth2 client ID from the DeviantArt developer app settings.", Example: "12345", Required: true},
	{Name: KeyClientSecret, Description: "OAuth2 client secret from the DeviantArt developer app settings.", Example: "replace-me", Required: true, Secret: true},
	{Name: KeyRedirectURI, Description: "OAuth2 redirect URI configured on your DeviantArt app.", Example: "http://localhost:8765/callback", Required: true},
	{Name: KeyRefreshToken, Description: "OAuth2 refresh token used to mint fresh access tokens.", Example: "replace-me", Secret: true},
	{Name: KeyAccessToken, Description: "Current OAuth2 access token (optional cache).", Example: "replace-me", Secret: true},
	{Name: KeyOAuthScope, Description: "Scope granted with the last token, filled in by auth commands.", Example: "browse user.manage"},
}

// RequiredCredentials lists keys which must be set for any API work.
func RequiredCredentials() []string {
	var names []string
	for _, v := range CredentialVars {
		if v.Required {
			names = append(names, v.Name)
		}
	}
	return names
}

// Credentials is content of env file with process environment superimposed.
type Credentials struct {
	path   string
	values map[string]string
	// keys appended to env file when it was loaded
	added []string
}

// LoadCredentials reads env file. When bootstrap is requested missing file is
// created and missing known keys are appended with instructions first.
// Non-empty process environment values take precedence over the file.
func LoadCredentials(path string, bootstrap bool) (*Credentials, error) {
	c := &Credentials{path: path, values: make(map[string]string)}

	if bootstrap {
		added, err := BootstrapCredentials(path)
		if err != nil {
			return nil, err
		}
		c.added = added
	}

	file, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to read credentials from %s: %w", path, err)
	}
	for _, v := range CredentialVars {
		value := strings.TrimSpace(os.Getenv(v.Name))
		if value == "" {
			value = strings.TrimSpace(file[v.Name])
		}
		c.values[v.Name] = value
	}
	return c, nil
}

// Path returns location of env file.
func (c *Credentials) Path() string {
	return c.path
}

// Added returns keys appended to env file by bootstrap.
func (c *Credentials) Added() []string {
	return c.added
}

// Get returns trimmed value, empty if not set.
func (c *Credentials) Get(name string) string {
	return c.values[name]
}

// Secret returns value wrapped so it could be logged safely.
func (c *Credentials) Secret(name string) SecretString {
	return SecretString(c.values[name])
}

// Has reports whether all names have non-empty values.
func (c *Credentials) Has(names ...string) bool {
	return len(c.missing(names)) == 0
}

func (c *Credentials) missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if c.values[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Require fails with ErrConfigIncomplete listing keys without values.
func (c *Credentials) Require(names ...string) error {
	missing := c.missing(names)
	if len(missing) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "update %s and set values for: %s", c.path, strings.Join(missing, ", "))
	if len(c.added) > 0 {
		fmt.Fprintf(&b, " (added missing keys: %s)", strings.Join(c.added, ", "))
	}
	return fmt.Errorf("%w: %s", common.ErrConfigIncomplete, b.String())
}

// Update writes values to env file keeping unrelated lines and comments and
// makes them visible through Get immediately.
func (c *Credentials) Update(updates map[string]string) error {
	if err := UpsertCredentials(c.path, updates); err != nil {
		return err
	}
	for k, v := range updates {
		c.values[k] = strings.TrimSpace(v)
	}
	return nil
}

// CredentialStatus is what "check" command shows for a key.
type CredentialStatus struct {
	Name     string
	Required bool
	Set      bool
	Display  string
}

// Status describes every known key with secrets redacted.
func (c *Credentials) Status() []CredentialStatus {
	out := make([]CredentialStatus, 0, len(CredentialVars))
	for _, v := range CredentialVars {
		value := c.values[v.Name]
		st := CredentialStatus{Name: v.Name, Required: v.Required, Set: value != "", Display: value}
		switch {
		case value == "":
			st.Display = "(empty)"
		case v.Secret:
			st.Display = SecretString(value).Hint()
		}
		out = append(out, st)
	}
	return out
}

func renderVar(v CredentialVar) string {
	lines := []string{"# " + v.Description}
	if v.Example != "" {
		lines = append(lines, "# Example: "+v.Example)
	}
	lines = append(lines, v.Name+"=")
	return strings.Join(lines, "\n")
}

// BootstrapCredentials creates env file if necessary and appends known keys
// which are not present in it, existing values are preserved. Returns names
// of added keys.
func BootstrapCredentials(path string) ([]string, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create directory for %s: %w", path, err)
		}
	}

	original, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		original = []byte(strings.Join([]string{
			"# " + misc.GetAppName() + " environment configuration",
			"# Fill in required values before running live API operations.",
			"",
		}, "\n"))
	case err != nil:
		return nil, fmt.Errorf("unable to read credentials from %s: %w", path, err)
	}

	existing, err := godotenv.Unmarshal(string(original))
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials in %s: %w", path, err)
	}

	var (
		added  []string
		blocks []string
	)
	for _, v := range CredentialVars {
		if _, ok := existing[v.Name]; ok {
			continue
		}
		added = append(added, v.Name)
		blocks = append(blocks, renderVar(v))
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	content := string(original)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(blocks, "\n\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("unable to write credentials to %s: %w", path, err)
	}
	return added, nil
}

// UpsertCredentials replaces values of existing keys in place and appends new
// ones, every other line is kept as is. File is bootstrapped when absent.
func UpsertCredentials(path string, updates map[string]string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if _, err := BootstrapCredentials(path); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read credentials from %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	index := make(map[string]int)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), "export "))
		if key != "" {
			index[key] = i
		}
	}

	appending := false
	for _, key := range orderedKeys(updates) {
		line := key + "=" + formatValue(updates[key])
		if i, ok := index[key]; ok {
			lines[i] = line
			continue
		}
		// new keys are kept together, separated from the rest by blank line
		if !appending && len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		appending = true
		lines = append(lines, line)
		index[key] = len(lines) - 1
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		return fmt.Errorf("unable to write credentials to %s: %w", path, err)
	}
	return nil
}

// orderedKeys sorts known keys by registry order, unknown ones go last by name.
func orderedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		if i := slices.IndexFunc(CredentialVars, func(v CredentialVar) bool { return v.Name == k }); i >= 0 {
			return i
		}
		return len(CredentialVars)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return keys
}

// formatValue quotes values godotenv would otherwise split or strip.
func formatValue(v string) string {
	if !strings.ContainsAny(v, " \t#\"'\\\n") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(v) + `"`
}
