package types

// Order Status values
const (
	OrderOpen      = "open"
	OrderClosed    = "closed"
	OrderOrdered   = "ordered"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Currency values
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyBRL = "BRL"
	CurrencyGBP = "GBP"
)

// Cascade job kinds
const (
	CascadeGroup = "group"
	CascadeOrder = "order"
)

// Cascade job status values
const (
	CascadePending = "pending"
	CascadeDone    = "done"
)

// Cascade phases, in execution order per kind
const (
	PhaseCards    = "cards"
	PhaseOrders   = "orders"
	PhaseMessages = "messages"
	PhaseGroup    = "group"
	PhaseOrder    = "order"
)

// Helper functions
func ValidOrderStatuses() []string {
	return []string{OrderOpen, OrderClosed, OrderOrdered, OrderDelivered, OrderCancelled}
}

func ValidCurrencies() []string {
	return []string{CurrencyUSD, CurrencyEUR, CurrencyBRL, CurrencyGBP}
}

func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

func IsValidCurrency(currency string) bool {
	for _, c := range ValidCurrencies() {
		if c == currency {
			return true
		}
	}
	return false
}
