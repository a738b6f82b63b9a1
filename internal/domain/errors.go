// internal/domain/errors.go
package domain

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Settlement
var (
	ErrNoPayoutMethod              = errors.New("partner has no payout method configured")
	ErrPayoutsNotEnabled           = errors.New("partner payouts are not enabled")
	ErrUnsupportedMethod           = errors.New("unsupported payout method")
	ErrSettlementInProgress        = errors.New("settlement already in progress for partner")
	ErrRecipientCapabilityInactive = errors.New("recipient account is missing a required capability")
	ErrMissingTransferID           = errors.New("vendor returned no transfer id")
	ErrConcurrentSettlement        = errors.New("payouts changed status during settlement")
	ErrPayoutNotSent               = errors.New("payout is not awaiting confirmation")
)

// OAuth
var (
	ErrInvalidOAuthState = errors.New("invalid or expired oauth state")
	ErrUnknownProvider   = errors.New("unknown oauth provider")
)

// SkipReason explains why a settlement ended without moving money.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipPayoutsDisabled   SkipReason = "payouts_disabled"
	SkipNoAccount         SkipReason = "no_recipient_account"
	SkipNoPayouts         SkipReason = "no_processing_payouts"
	SkipNonPositiveAmount SkipReason = "non_positive_amount"
	SkipRecipientClosed   SkipReason = "recipient_closed"
)

// DubApiError is the structured error returned by dashboard routes.
type DubApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *DubApiError) Error() string {
	return e.Code + ": " + e.Message
}

func NewUnauthorized(msg string) *DubApiError {
	return &DubApiError{Code: "unauthorized", Message: msg, Status: http.StatusUnauthorized}
}

func NewNotFound(msg string) *DubApiError {
	return &DubApiError{Code: "not_found", Message: msg, Status: http.StatusNotFound}
}

func NewBadRequest(msg string) *DubApiError {
	return &DubApiError{Code: "bad_request", Message: msg, Status: http.StatusBadRequest}
}

func NewInternal(msg string) *DubApiError {
	return &DubApiError{Code: "internal_server_error", Message: msg, Status: http.StatusInternalServerError}
}

// PGErrorCode returns the SQLSTATE of a postgres error, or "unknown".
func PGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// IsForeignKeyViolation reports SQLSTATE 23503.
func IsForeignKeyViolation(err error) bool {
	return PGErrorCode(err) == "23503"
}
