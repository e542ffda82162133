package sequence

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// pattern is a parsed printf-style path with exactly one integer verb in its
// base name. dir is the literal directory, with %% escapes resolved.
type pattern struct {
	raw    string
	dir    string
	prefix string
	suffix string
}

func parsePattern(raw string) (pattern, error) {
	dir, base := filepath.Split(raw)
	if n, err := countVerbs(dir); err != nil || n != 0 {
		return pattern{}, fmt.Errorf("%w: %q: the index must appear in the file name", ErrInvalidPattern, raw)
	}

	var (
		prefix, suffix strings.Builder
		verbs          int
	)
	for i := 0; i < len(base); i++ {
		out := &prefix
		if verbs > 0 {
			out = &suffix
		}
		if base[i] != '%' {
			out.WriteByte(base[i])
			continue
		}
		if i+1 < len(base) && base[i+1] == '%' {
			out.WriteByte('%')
			i++
			continue
		}
		end, ok := integerVerb(base, i)
		if !ok {
			return pattern{}, fmt.Errorf("%w: %q: only integer verbs such as %%05d are supported", ErrInvalidPattern, raw)
		}
		verbs++
		i = end
	}
	if verbs != 1 {
		return pattern{}, fmt.Errorf("%w: %q has %d integer verbs, want 1", ErrInvalidPattern, raw, verbs)
	}
	return pattern{raw: raw, dir: strings.ReplaceAll(dir, "%%", "%"), prefix: prefix.String(), suffix: suffix.String()}, nil
}

// integerVerb reports whether s[start:] begins with a %d verb carrying only
// zero-padding and width flags, returning the index of the trailing 'd'.
func integerVerb(s string, start int) (int, bool) {
	i := start + 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < len(s) && s[i] == 'd' {
		return i, true
	}
	return 0, false
}

func countVerbs(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		end, ok := integerVerb(s, i)
		if !ok {
			return 0, ErrInvalidPattern
		}
		n++
		i = end
	}
	return n, nil
}

func (p pattern) format(index int) string {
	return fmt.Sprintf(p.raw, index)
}

// index extracts the sequence index of a file name, requiring that
// formatting the index reproduces the name exactly.
func (p pattern) index(name string) (int, bool) {
	if !strings.HasPrefix(name, p.prefix) || !strings.HasSuffix(name, p.suffix) {
		return 0, false
	}
	if len(name) <= len(p.prefix)+len(p.suffix) {
		return 0, false
	}
	// Space padding comes from widths such as %5d.
	digits := strings.TrimLeft(name[len(p.prefix):len(name)-len(p.suffix)], " ")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if filepath.Base(p.format(idx)) != name {
		return 0, false
	}
	return idx, true
}

// bounds scans the pattern's directory and returns the smallest and largest
// matching indices.
func (p pattern) bounds() (lower, upper, count int, err error) {
	dir := p.dir
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, 0, fmt.Errorf("%w: %q: %v", ErrNoMatchingFiles, p.raw, err)
		}
		return 0, 0, 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, ok := p.index(entry.Name())
		if !ok {
			continue
		}
		if count == 0 || idx < lower {
			lower = idx
		}
		if count == 0 || idx > upper {
			upper = idx
		}
		count++
	}
	if count == 0 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrNoMatchingFiles, p.raw)
	}
	return lower, upper, count, nil
}

type candidate struct {
	prefix string
	suffix string
	digits []string
}

// detectPattern picks the numbered file family with the most members in dir
// and returns its pattern. Ties go to the lexically smallest pattern.
func detectPattern(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}

	families := make(map[[2]string]*candidate)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		prefix, digits, suffix, ok := splitLastNumber(entry.Name())
		if !ok {
			continue
		}
		key := [2]string{prefix, suffix}
		c, exists := families[key]
		if !exists {
			c = &candidate{prefix: prefix, suffix: suffix}
			families[key] = c
		}
		c.digits = append(c.digits, digits)
	}

	var (
		best      string
		bestCount int
	)
	for _, c := range families {
		verb, count := c.verb()
		p := filepath.Join(escapePercent(dir), escapePercent(c.prefix)+verb+escapePercent(c.suffix))
		if count > bestCount || (count == bestCount && p < best) {
			best, bestCount = p, count
		}
	}
	if bestCount == 0 {
		return "", fmt.Errorf("%w: no numbered files in %s", ErrNoMatchingFiles, dir)
	}
	return best, nil
}

// verb chooses the integer verb describing the family's digit strings and
// reports how many members it matches.
func (c *candidate) verb() (string, int) {
	widths := make(map[int]int)
	padded := false
	for _, d := range c.digits {
		widths[len(d)]++
		if len(d) > 1 && d[0] == '0' {
			padded = true
		}
	}
	if len(widths) > 1 && !padded {
		return "%d", len(c.digits)
	}
	keys := make([]int, 0, len(widths))
	for w := range widths {
		keys = append(keys, w)
	}
	slices.Sort(keys)
	width := keys[0]
	for _, w := range keys {
		if widths[w] > widths[width] {
			width = w
		}
	}
	if width == 1 {
		return "%d", widths[width]
	}
	return "%0" + strconv.Itoa(width) + "d", widths[width]
}

func splitLastNumber(name string) (prefix, digits, suffix string, ok bool) {
	end := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] >= '0' && name[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return "", "", "", false
	}
	start := end - 1
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	return name[:start], name[start:end], name[end:], true
}

func escapePercent(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
