package instance

import (
	"fmt"
	"regexp"
)

// DefaultName is the cache instance started by 'encmusic cache up' without --name.
const DefaultName = "default"

// maxNameLength keeps names usable as a DNS label.
const maxNameLength = 63

var namePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName rejects cache names that cannot be used as a container name suffix.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("cache name cannot be empty")
	case len(name) > maxNameLength:
		return fmt.Errorf("cache name %q is %d characters, limit is %d", name, len(name), maxNameLength)
	case !namePattern.MatchString(name):
		return fmt.Errorf("invalid cache name %q: use lowercase letters, digits and inner hyphens", name)
	}
	return nil
}
