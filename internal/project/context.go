// Package project loads the user's active-project context consumed by the
// thematic classification pass.
package project

import (
	"os"

	"github.com/tabwarden/tabwarden/internal/errors"

	"gopkg.in/yaml.v3"
)

// Project is one active project the thematic pass cross-references against.
type Project struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	// Categories are project-defined category names added to the open set.
	Categories []string `yaml:"categories,omitempty"`
}

// Context is the full context file.
type Context struct {
	Projects []Project `yaml:"projects"`
}

// CategoryNames returns every project-defined category across projects.
func (c *Context) CategoryNames() []string {
	if c == nil {
		return nil
	}
	var names []string
	seen := make(map[string]struct{})
	for _, p := range c.Projects {
		for _, cat := range p.Categories {
			if _, ok := seen[cat]; ok {
				continue
			}
			seen[cat] = struct{}{}
			names = append(names, cat)
		}
	}
	return names
}

// Load reads a context file. A missing path is ErrNotFound so callers can
// treat it as "no context" rather than a failure.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("project context " + path)
		}
		return nil, errors.Wrap(err, "read project context")
	}

	var ctx Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, errors.InvalidInput("parse project context: " + err.Error())
	}
	return &ctx, nil
}
