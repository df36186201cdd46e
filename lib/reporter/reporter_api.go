// Package reporter persists computed matrix profiles.
package reporter

import (
	"github.com/kpaschen/quickmp/lib/datatypes"
)

type Reporter interface {
	AddProfile(profile *datatypes.Profile) error

	Flush() error
}
