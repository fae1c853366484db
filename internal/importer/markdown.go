package importer

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// frontmatter is the subset of YAML frontmatter keys the importer reads.
type frontmatter struct {
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags"`
	Favorite bool     `yaml:"favorite"`
	Mode     string   `yaml:"mode"`
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Without frontmatter, or with invalid YAML, the
// whole input is body.
func splitFrontmatter(data []byte) (*frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

// extractTags collects frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, fm *frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if fm != nil {
		for _, t := range fm.Tags {
			add(t)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// firstHeading returns the text of the first H1 heading, or "".
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
