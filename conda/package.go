package conda

import (
	"strings"
)

// Package is a single package of a solved environment.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildString string `json:"build_string"`
	Channel     string `json:"channel"`
	Subdir      string `json:"subdir"`
	URL         string `json:"url"`
	MD5         string `json:"md5"`

	// fallbacks used to build the url when the solver doesn't report one
	BaseURL  string `json:"base_url"`
	Platform string `json:"platform"`
	DistName string `json:"dist_name"`
	Fn       string `json:"fn"`
}

// Spec returns the exact match spec of the package, name=version=build.
func (p Package) Spec() string {
	return p.Name + "=" + p.Version + "=" + p.BuildString
}

// ExplicitURL returns the line identifying the package in an explicit lock file.
func (p Package) ExplicitURL() string {
	url := p.URL
	if url == "" {
		url = p.derivedURL()
	}

	if p.MD5 == "" {
		return url
	}
	return url + "#" + p.MD5
}

func (p Package) derivedURL() string {
	subdir := p.Subdir
	if subdir == "" {
		subdir = p.Platform
	}

	fn := p.Fn
	if fn == "" && p.DistName != "" {
		fn = p.DistName + ".tar.bz2"
	}
	if fn == "" {
		fn = p.Name + "-" + p.Version + "-" + p.BuildString + ".tar.bz2"
	}

	return strings.TrimSuffix(p.BaseURL, "/") + "/" + subdir + "/" + fn
}

// NameFromSpec returns the package name of a match spec, e.g. python for
// "python >=3.9", numpy for "numpy=1.26=py311" and uhd for "conda-forge::uhd".
func NameFromSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if _, name, ok := strings.Cut(spec, "::"); ok {
		spec = name
	}

	if i := strings.IndexAny(spec, " \t=<>!~[;"); i >= 0 {
		spec = spec[:i]
	}

	return spec
}
