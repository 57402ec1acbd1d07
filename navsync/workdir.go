package navsync

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"storynav/common"
	"storynav/config"
)

// WorkdirValues are available to sync directory name template.
type WorkdirValues struct {
	Username string
	Folder   string
	Order    string
	RunID    string
}

// WorkdirName expands name template. Result is always a single path
// element.
func WorkdirName(tmpl string, values WorkdirValues) (string, error) {
	funcs := sprig.FuncMap()
	funcs["slug"] = slug.Make

	t, err := template.New("workdir").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: bad workdir template: %w", common.ErrInvalidInput, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("%w: unable to expand workdir template: %w", common.ErrInvalidInput, err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" {
		return "", fmt.Errorf("%w: workdir template %q expanded to empty name", common.ErrInvalidInput, tmpl)
	}
	return config.CleanFileName(name), nil
}

// PrepareWorkdir makes sure dir exists and is empty. Existing non empty
// directory (or a file) is never reused.
func PrepareWorkdir(dir string) (string, error) {
	dir = filepath.Clean(dir)

	fi, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("unable to create workdir '%s': %w", dir, err)
		}
		return dir, nil
	case err != nil:
		return "", fmt.Errorf("unable to access workdir '%s': %w", dir, err)
	case !fi.IsDir():
		return "", fmt.Errorf("%w: workdir path exists and is not a directory: %s", common.ErrWorkdirConflict, dir)
	}

	f, err := os.Open(dir)
	if err != nil {
		return "", fmt.Errorf("unable to access workdir '%s': %w", dir, err)
	}
	defer f.Close()

	if names, _ := f.Readdirnames(1); len(names) > 0 {
		return "", fmt.Errorf("%w: workdir must be empty: %s", common.ErrWorkdirConflict, dir)
	}
	return dir, nil
}
