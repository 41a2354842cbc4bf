package validation

import "strings"

// Violations maps a field name to a short violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len(value) > max {
		v[field] = "too_long"
	}
}

// Email does a minimal shape check; real validation happens when the
// confirmation flow of a mail provider is wired, which this app does not do.
func Email(field, value string, v Violations) {
	at := strings.Index(value, "@")
	if at <= 0 || at == len(value)-1 || !strings.Contains(value[at:], ".") {
		v[field] = "invalid_email"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_value"
}
