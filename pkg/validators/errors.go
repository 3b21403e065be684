// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"maps"
	"slices"
	"strings"
)

// FieldErrors maps a request field to every message produced for it. It's
// rendered as-is in the "errors" object of a 400 response.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) Error() string {
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(f)) {
		if i > 0 {
			b.WriteString("; ")
		}

		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(f[k], " "))
	}

	return b.String()
}

// Merge copies every message of o into f
func (f FieldErrors) Merge(o FieldErrors) {
	for k, msgs := range o {
		f[k] = append(f[k], msgs...)
	}
}
