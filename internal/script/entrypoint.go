package script

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// selectEntryPoint picks the entry point of the definition called name among
// the callables a script defines.
func selectEntryPoint(name string, candidates []string) (string, error) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var named []string
	for _, c := range sorted {
		if normalizeName(c) == normalizeName(name) {
			named = append(named, c)
		}
	}
	switch {
	case len(named) == 1:
		return named[0], nil
	case len(named) > 1:
		return "", errors.Wrapf(ErrAmbiguousEntryPoint, "several functions match the name %q: %s", name, strings.Join(named, ", "))
	}

	switch len(sorted) {
	case 0:
		return "", ErrNoEntryPoint
	case 1:
		return sorted[0], nil
	default:
		return "", errors.Wrapf(ErrAmbiguousEntryPoint, "candidates %s; name one of them %q", strings.Join(sorted, ", "), name)
	}
}

func normalizeName(s string) string {
	s = strings.NewReplacer("_", "", "-", "").Replace(s)
	return strings.ToLower(s)
}
