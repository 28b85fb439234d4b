// Copyright © 2024 The ELPS authors

package matcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// patternTimeout bounds a single name-pattern match.
const patternTimeout = 100 * time.Millisecond

// PatternCache holds compiled name patterns keyed by their source text.
// Patterns use JVM regular expression syntax and must match a whole name.
// A PatternCache is safe for concurrent use and may be shared by all
// matchers of an analysis run.
type PatternCache struct {
	mu       sync.Mutex
	patterns map[string]*regexp2.Regexp
}

// NewPatternCache returns an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{patterns: make(map[string]*regexp2.Regexp)}
}

// Compile returns the compiled form of src, compiling it on first use.
func (c *PatternCache) Compile(src string) (*regexp2.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.patterns[src]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(`^(?:`+src+`)$`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("name pattern %q: %w", src, err)
	}
	re.MatchTimeout = patternTimeout
	c.patterns[src] = re
	return re, nil
}

// Len returns the number of compiled patterns.
func (c *PatternCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patterns)
}

func matchPattern(re *regexp2.Regexp, name string) bool {
	ok, err := re.MatchString(name)
	return err == nil && ok
}
