package migrate

import (
	"errors"
	"fmt"
)

// FatalError aborts the whole run. It carries enough identifying context
// (legacy ID, offending record) to locate the source row; there is no
// partial-success path, the operator fixes the data and re-runs from the
// top.
type FatalError struct {
	// Code identifies the failure category.
	Code FatalCode

	// Message is a human-readable description.
	Message string

	// LegacyID is the legacy key of the offending row, when there is one.
	LegacyID int64

	// Record is a dump of the decoded record involved, when there is one.
	Record string
}

// FatalCode categorizes run-aborting failures.
type FatalCode string

const (
	// CodeMissingCategory: a category sale references a legacy category
	// absent from the category map. Corrupt source data.
	CodeMissingCategory FatalCode = "MISSING_CATEGORY"

	// CodeMissingCustomer: an address references a legacy customer absent
	// from the customer map. Addresses always belong to a known customer.
	CodeMissingCustomer FatalCode = "MISSING_CUSTOMER"

	// CodeMissingProduct: a variant's base SKU resolved to no inserted
	// product, or an exception-table entry points at nothing.
	CodeMissingProduct FatalCode = "MISSING_PRODUCT"

	// CodeVariantCollision: two active variants share a (product, suffix)
	// key. The source should never produce this; the run stops rather
	// than silently picking one.
	CodeVariantCollision FatalCode = "VARIANT_COLLISION"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.LegacyID != 0 {
		return fmt.Sprintf("%s: %s (legacy id %d)", e.Code, e.Message, e.LegacyID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func fatalf(code FatalCode, legacyID int64, record string, format string, args ...any) error {
	return &FatalError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		LegacyID: legacyID,
		Record:   record,
	}
}
