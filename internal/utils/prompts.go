package utils

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// LoadPrompt loads an agent prompt from the embedded markdown files.
func LoadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return string(content), nil
}

// LoadPromptWithContext fills {{.Key}} placeholders from vars. A placeholder
// left without a value is an error, so an agent never sees a template
// marker in its system prompt.
func LoadPromptWithContext(name string, vars map[string]string) (string, error) {
	content, err := LoadPrompt(name)
	if err != nil {
		return "", err
	}

	missing := map[string]bool{}
	content = placeholder.ReplaceAllStringFunc(content, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		missing[key] = true
		return m
	})
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("prompt %s: no value for %s", name, strings.Join(keys, ", "))
	}
	return content, nil
}
