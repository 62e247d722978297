package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// translate maps gorm sentinel errors onto the package ones so callers never
// import gorm to tell "missing" from "broken".
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// page applies offset/limit and a whitelisted ORDER BY. Unknown sort fields
// fall back to fallback.
func page(query *gorm.DB, params ListParams, sortable map[string]string, fallback string) *gorm.DB {
	limit := params.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	params.Limit = limit

	order := fallback
	if column, ok := sortable[params.Sort]; ok {
		order = column + " ASC"
		if params.Desc {
			order = column + " DESC"
		}
	}

	return query.Order(order).Offset(params.Offset()).Limit(limit)
}

// search adds a case-insensitive match of term against every column.
func search(query *gorm.DB, term string, columns ...string) *gorm.DB {
	if term == "" || len(columns) == 0 {
		return query
	}
	like := "%" + term + "%"
	cond := query.Session(&gorm.Session{NewDB: true})
	for i, column := range columns {
		if i == 0 {
			cond = cond.Where(column+" ILIKE ?", like)
			continue
		}
		cond = cond.Or(column+" ILIKE ?", like)
	}
	return query.Where(cond)
}

// scoped restricts query to rows whose eventColumn belongs to scope.
func scoped(query *gorm.DB, scope EventScope, eventColumn string) *gorm.DB {
	if scope.All {
		return query
	}
	switch {
	case scope.DepartmentID != nil && len(scope.EventIDs) > 0:
		return query.Where(eventColumn+" IN (SELECT id FROM events WHERE department_id = ?) OR "+eventColumn+" IN ?",
			*scope.DepartmentID, scope.EventIDs)
	case scope.DepartmentID != nil:
		return query.Where(eventColumn+" IN (SELECT id FROM events WHERE department_id = ?)", *scope.DepartmentID)
	case len(scope.EventIDs) > 0:
		return query.Where(eventColumn+" IN ?", scope.EventIDs)
	default:
		return query.Where("1 = 0")
	}
}
