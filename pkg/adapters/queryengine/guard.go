package queryengine

import (
	"fmt"
	"strings"

	"github.com/corazawaf/libinjection-go"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// QuoteTable validates a table name and renders it with every part quoted,
// ready to be interpolated into statements that take no bind parameters
// (SHOW STATS FOR, SHOW TABLE STATS).
func QuoteTable(table string, quote byte) (string, error) {
	if isSQLi, fingerprint := libinjection.IsSQLi(table); isSQLi {
		return "", fmt.Errorf("%w: table name rejected (fingerprint %s)", apperrors.ErrInvalidInput, fingerprint)
	}
	name, err := sqlast.ParseQualifiedName(table)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	q := string(quote)
	parts := name.Parts()
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, "."), nil
}
