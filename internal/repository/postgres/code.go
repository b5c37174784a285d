package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/repository"
	"rental-car-dashboard/internal/utils"
)

var codeTables = map[domain.CodeKind]string{
	domain.CodeKindReservation: "reservations",
	domain.CodeKindPayment:     "payments",
}

type codeGenerator struct {
	db DBTX
}

func NewCodeGenerator(db DBTX) repository.CodeGenerator {
	return &codeGenerator{db: db}
}

// Next reads the highest code of kind and returns its successor. Codes are
// compared by length first so RS-100000 sorts after RS-99999.
func (g *codeGenerator) Next(ctx context.Context, kind domain.CodeKind) (string, error) {
	table, ok := codeTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown code kind %q", kind)
	}
	prefix := kind.Prefix()

	query := fmt.Sprintf(`SELECT code FROM %s WHERE code LIKE $1 ORDER BY length(code) DESC, code DESC LIMIT 1`, table)
	var maxCode string
	err := g.db.QueryRowContext(ctx, query, prefix+"%").Scan(&maxCode)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read max %s code: %w", kind, err)
	}
	return utils.NextCode(prefix, maxCode)
}
