package render

import (
	"context"
	"net/url"
	"strings"
)

// ResolveURL resolves ref against base. ref is returned unchanged when
// either side does not parse or base is not absolute.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// AbsAttribute reads a URL-valued attribute of el and resolves it against the
// session's current location.
func AbsAttribute(ctx context.Context, s Session, el Element, name string) (string, bool, error) {
	v, ok, err := el.Attribute(ctx, name)
	if err != nil || !ok {
		return "", ok, err
	}
	loc, err := s.Location(ctx)
	if err != nil {
		return "", false, err
	}
	return ResolveURL(loc, v), true, nil
}
