package ledger

import "fmt"

// Kind selects the backend collection a mutation is routed to.
type Kind string

const (
	KindCompany          Kind = "company-ledger"
	KindVendorService    Kind = "vendor-service"
	KindVendorPayment    Kind = "vendor-payment"
	KindVendorAdjustment Kind = "vendor-adjustment"
	KindExpense          Kind = "expense-ledger"
	KindBank             Kind = "bank-ledger"
)

// Route is the REST location of a kind. EntryType is only set for the vendor
// kinds, which share one endpoint.
type Route struct {
	Path      string
	EntryType string
}

// RouteFor returns the collection path for a kind.
func RouteFor(k Kind) (Route, error) {
	switch k {
	case KindCompany:
		return Route{Path: "/api/v1/company-ledger"}, nil
	case KindVendorService:
		return Route{Path: "/api/v1/vendor-ledger", EntryType: EntryTypeService}, nil
	case KindVendorPayment:
		return Route{Path: "/api/v1/vendor-ledger", EntryType: EntryTypePayment}, nil
	case KindVendorAdjustment:
		return Route{Path: "/api/v1/vendor-ledger", EntryType: EntryTypeAdjustment}, nil
	case KindExpense:
		return Route{Path: "/api/v1/expense-ledger"}, nil
	case KindBank:
		return Route{Path: "/api/v1/bank-ledger"}, nil
	default:
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// CollectionPath returns the REST path serving a ledger.
func CollectionPath(l Ledger) string {
	return "/api/v1/" + string(l) + "-ledger"
}

// KindForEntry picks the kind from the entry's own ledger and entry type.
func KindForEntry(e Entry) (Kind, error) {
	switch e.Ledger {
	case LedgerCompany:
		return KindCompany, nil
	case LedgerExpense:
		return KindExpense, nil
	case LedgerBank:
		return KindBank, nil
	case LedgerVendor:
		switch e.EntryType {
		case EntryTypeService:
			return KindVendorService, nil
		case EntryTypePayment:
			return KindVendorPayment, nil
		case EntryTypeAdjustment:
			return KindVendorAdjustment, nil
		}
		return "", fmt.Errorf("%w: vendor entry type %q", ErrUnknownKind, e.EntryType)
	}
	return "", fmt.Errorf("%w: ledger %q", ErrUnknownKind, e.Ledger)
}

// Shared signal keys. Expense and bank screens reload together.
const (
	SyncKeyClient      = "ledger-sync:client"
	SyncKeyVendor      = "ledger-sync:vendor"
	SyncKeyExpenseBank = "ledger-sync:expense-bank"
)

// SyncKey returns the signal key family a ledger belongs to.
func SyncKey(l Ledger) string {
	switch l {
	case LedgerCompany:
		return SyncKeyClient
	case LedgerVendor:
		return SyncKeyVendor
	default:
		return SyncKeyExpenseBank
	}
}
