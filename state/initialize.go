package state

import (
	_ "embed"
	"time"
)

//go:embed page.html.tmpl
var defaultPageTemplate []byte

//go:embed theme.css
var defaultStylesheet []byte

// newLocalEnv creates a new LocalEnv instance with embedded page template and
// stylesheet.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:        time.Now(),
		PageTemplate: defaultPageTemplate,
		Stylesheet:   defaultStylesheet,
	}
}
