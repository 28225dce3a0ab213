// Package routes describes HTTP route trees and registers them on a
// Go 1.22 pattern ServeMux.
package routes

import "net/http"

// Route binds a method and a path pattern, relative to its group, to a
// handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group is a set of routes sharing a prefix. Child prefixes are appended to
// the parent's.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.walk("", func(pattern string, r Route) {
			mux.HandleFunc(pattern, r.Handler)
		})
	}
}

// Patterns lists the ServeMux patterns of the group tree in registration
// order.
func (g Group) Patterns() []string {
	var out []string
	g.walk("", func(pattern string, _ Route) {
		out = append(out, pattern)
	})
	return out
}

func (g Group) walk(parent string, fn func(pattern string, r Route)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(r.Method+" "+prefix+r.Pattern, r)
	}
	for _, child := range g.Children {
		child.walk(prefix, fn)
	}
}
