package enums

import "fmt"

// TransactionStatus is the domain vocabulary for a payment attempt.
type TransactionStatus string

const (
	TransactionStatusInProcess TransactionStatus = "IN_PROCESS"
	TransactionStatusApproved  TransactionStatus = "APPROVED"
	TransactionStatusDeclined  TransactionStatus = "DECLINED"
	TransactionStatusVoided    TransactionStatus = "VOIDED"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusInProcess,
	TransactionStatusApproved,
	TransactionStatusDeclined,
	TransactionStatusVoided,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is accepted.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusApproved, TransactionStatusDeclined, TransactionStatusVoided:
		return true
	default:
		return false
	}
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
