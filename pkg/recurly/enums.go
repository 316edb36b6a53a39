package recurly

import "fmt"

// CollectionMethod is how an invoice is collected.
type CollectionMethod string

const (
	CollectionAutomatic CollectionMethod = "automatic"
	CollectionManual    CollectionMethod = "manual"
)

var collectionMethods = []CollectionMethod{CollectionAutomatic, CollectionManual}

// AddOnType distinguishes fixed price add-ons from usage based ones.
type AddOnType string

const (
	AddOnFixed AddOnType = "fixed"
	AddOnUsage AddOnType = "usage"
)

var addOnTypes = []AddOnType{AddOnFixed, AddOnUsage}

// RevenueSchedule controls how revenue for a charge is recognized.
type RevenueSchedule string

const (
	RevenueNever        RevenueSchedule = "never"
	RevenueEvenly       RevenueSchedule = "evenly"
	RevenueAtRangeStart RevenueSchedule = "at_range_start"
	RevenueAtRangeEnd   RevenueSchedule = "at_range_end"
)

var revenueSchedules = []RevenueSchedule{RevenueNever, RevenueEvenly, RevenueAtRangeStart, RevenueAtRangeEnd}

// AccountState is the state of an account. Besides the states an account
// reports, the subscriber states are accepted as list filters.
type AccountState string

const (
	AccountStateActive        AccountState = "active"
	AccountStateClosed        AccountState = "closed"
	AccountStatePastDue       AccountState = "past_due"
	AccountStateSubscriber    AccountState = "subscriber"
	AccountStateNonSubscriber AccountState = "non_subscriber"
)

var accountStates = []AccountState{
	AccountStateActive,
	AccountStateClosed,
	AccountStatePastDue,
	AccountStateSubscriber,
	AccountStateNonSubscriber,
}

// ParseAccountState validates a state name; "" means no filter.
func ParseAccountState(s string) (AccountState, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range accountStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &UnknownStateError{State: s}
}

// UnknownStateError is returned for a state name that is not recognized.
type UnknownStateError struct {
	State string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown account state %q", e.State)
}
