package myfview

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Marker is the path prefix that activates the viewer.
const Marker = "//"

// SplitPath splits an activated path into the user identifier and the opaque
// sub-path. "//ada//notes//2024" yields ("ada", "notes2024"): the sub-path is
// everything after the first marker with further markers removed.
// ok is false when path does not start with Marker.
func SplitPath(path string) (identifier, subPath string, ok bool) {
	if !strings.HasPrefix(path, Marker) {
		return "", "", false
	}
	rest := path[len(Marker):]
	identifier, after, found := strings.Cut(rest, Marker)
	if found {
		subPath = strings.ReplaceAll(after, Marker, "")
	}
	return identifier, subPath, true
}

// hostname returns the request host without its port.
func hostname(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

type subPathKey struct{}

// SubPath returns the sub-path captured from an activated request, if any.
func SubPath(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subPathKey{}).(string)
	return s, ok
}

func withSubPath(ctx context.Context, subPath string) context.Context {
	return context.WithValue(ctx, subPathKey{}, subPath)
}
