// Package ignore excludes files from indexing using gitignore-style
// patterns. Patterns come from the ingest.exclude config list and from a
// .docsearchignore file at the root of the documents directory.
//
// Supported syntax: blank lines and # comments, ! negation, a trailing /
// for directories, a leading / or inner / to anchor at the root, and the
// * ? [...] ** wildcards. Later patterns win.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileName is read from the root of a scanned or watched directory.
const FileName = ".docsearchignore"

type pattern struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
}

// Rules is an ordered pattern list. The zero value ignores nothing.
// Rules is immutable after construction and safe for concurrent use.
type Rules struct {
	patterns []pattern
}

// New compiles patterns. Blank lines and comments are skipped.
func New(patterns ...string) *Rules {
	r := &Rules{}
	for _, p := range patterns {
		r.add(p)
	}
	return r
}

// Load compiles extra followed by the contents of root/.docsearchignore,
// if that file exists.
func Load(root string, extra []string) (*Rules, error) {
	r := New(extra...)

	f, err := os.Open(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", FileName, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return r, nil
}

// Len returns the number of compiled patterns.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

func (r *Rules) add(line string) {
	keepSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	var p pattern
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		p.negate = true
		line = line[1:]
	}
	if keepSpace && strings.HasSuffix(line, `\`) {
		line = strings.TrimSuffix(line, `\`) + " "
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	// "a/b" is relative to the root; "**/b" and "*/b" float.
	if strings.Contains(line, "/") && !strings.HasPrefix(line, "*") {
		p.anchored = true
	}
	if line == "" {
		return
	}

	p.re = regexp.MustCompile("^" + translate(line) + "$")
	r.patterns = append(r.patterns, p)
}

// Match reports whether rel, a slash or OS separated path relative to the
// root, is excluded.
func (r *Rules) Match(rel string, isDir bool) bool {
	if r == nil {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")

	excluded := false
	for _, p := range r.patterns {
		if p.matches(rel, isDir) {
			excluded = !p.negate
		}
	}
	return excluded
}

// MatchPath is Match for an absolute path under root. Paths outside root
// are never excluded.
func (r *Rules) MatchPath(root, path string, isDir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return r.Match(rel, isDir)
}

func (p pattern) matches(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	last := len(parts) - 1

	if p.anchored {
		if p.re.MatchString(rel) {
			return !p.dirOnly || isDir
		}
		if p.dirOnly {
			for i := 0; i < last; i++ {
				if p.re.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if p.dirOnly {
		for i, part := range parts {
			if p.re.MatchString(part) {
				return i < last || isDir
			}
		}
		return false
	}

	if p.re.MatchString(rel) {
		return true
	}
	for _, part := range parts {
		if p.re.MatchString(part) {
			return true
		}
	}
	return false
}

// translate turns a glob into a regular expression body.
func translate(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				if i == 0 || glob[i-1] == '/' {
					b.WriteString(".*")
					i++
					continue
				}
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(glob[i : i+end+2])
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
