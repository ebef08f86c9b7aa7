// Package rules models header and redirect rules and their side-file
// formats (the `_headers` and `_redirects` files historically authored
// separately from the main deploy configuration).
package rules

// HeaderRule applies response headers to every path matching For.
type HeaderRule struct {
	For    string            `toml:"for" yaml:"for"`
	Values map[string]string `toml:"values" yaml:"values"`
}

// RedirectRule rewrites or redirects a request path.
//
// Params carries extension keys the pipeline does not recognize; they are
// serialized as trailing key=value pairs in the side-file format.
type RedirectRule struct {
	From   string            `toml:"from" yaml:"from"`
	To     string            `toml:"to" yaml:"to"`
	Status int               `toml:"status,omitempty" yaml:"status,omitempty"`
	Force  bool              `toml:"force,omitempty" yaml:"force,omitempty"`
	Params map[string]string `toml:"params,omitempty" yaml:"params,omitempty"`
}

// DefaultRedirectStatus is used when a rule does not declare a status.
// Rewrites keep serving from the original URL, hence 200.
const DefaultRedirectStatus = 200
