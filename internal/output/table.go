package output

import (
	"fmt"
	"regexp"
)

// DefaultTable is the table alerts are inserted into by the SQL sinks.
const DefaultTable = "silver_ion_events"

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidateTable rejects table names that cannot be used unquoted in SQL.
// Table names are interpolated into statements, so only plain identifiers
// are accepted.
func ValidateTable(name string) error {
	if !tableRe.MatchString(name) {
		return fmt.Errorf("output: invalid table name %q", name)
	}
	return nil
}
