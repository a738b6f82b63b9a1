// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"fmt"

	"partner-payouts/internal/domain"
)

// RecipientState is the vendor's view of a partner's receiving account.
type RecipientState string

const (
	RecipientReady              RecipientState = "ready"
	RecipientClosed             RecipientState = "closed"
	RecipientCapabilityInactive RecipientState = "capability_inactive"
)

// Rail defines what every payout rail must implement
type Rail interface {
	// Method returns the payout method the rail settles
	Method() domain.PayoutMethod

	// CheckRecipient reports whether the account can receive money
	CheckRecipient(ctx context.Context, account string) (RecipientState, error)

	// Send moves money to the account. Identical idempotency keys must not pay twice.
	Send(ctx context.Context, req *SendRequest) (*SendResult, error)
}

type SendRequest struct {
	Account        string
	Amount         int64
	Currency       string
	IdempotencyKey string
	PartnerID      string
	InvoiceID      string
	PayoutIDs      []string
	Description    string
}

type SendResult struct {
	ID     string
	Status string
}

// VendorError wraps a non-2xx vendor response.
type VendorError struct {
	Vendor  string
	Status  int
	Code    string
	Message string
}

func (e *VendorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error (%d %s): %s", e.Vendor, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Vendor, e.Status, e.Message)
}

// AsVendorError unwraps err into a *VendorError if it carries one.
func AsVendorError(err error) (*VendorError, bool) {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Registry looks up rails by payout method.
type Registry map[domain.PayoutMethod]Rail

func NewRegistry(rails ...Rail) Registry {
	r := make(Registry, len(rails))
	for _, rail := range rails {
		if rail != nil {
			r[rail.Method()] = rail
		}
	}
	return r
}

func (r Registry) Get(method domain.PayoutMethod) (Rail, error) {
	rail, ok := r[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMethod, method)
	}
	return rail, nil
}
