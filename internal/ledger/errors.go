package ledger

import "errors"

var (
	ErrMissingID        = errors.New("entry id is required")
	ErrUnknownKind      = errors.New("unknown ledger kind")
	ErrUnknownLedger    = errors.New("unknown ledger")
	ErrInvalidEntryType = errors.New("invalid vendor entry type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyParticulars = errors.New("particulars are required")
	ErrNegativeAmount   = errors.New("debit and credit must not be negative")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrDeleteInFlight   = errors.New("delete already in progress")
	ErrRemote           = errors.New("server request failed")
)
