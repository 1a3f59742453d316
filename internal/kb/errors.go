package kb

import (
	"fmt"
	"strings"
)

// LoadError indicates that required knowledge base documents are absent.
// It is fatal to any pipeline run that depends on the loader.
type LoadError struct {
	Path    string
	Missing []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("required knowledge base documents missing from %s: %s",
		e.Path, strings.Join(e.Missing, ", "))
}
