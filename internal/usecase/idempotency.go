// internal/usecase/idempotency.go
package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// IdempotencyKey derives the vendor idempotency key for one settlement.
// Invoice-scoped runs key on the invoice and partner; otherwise the key is a
// digest of the sorted payout ids, so retries of the same batch collide.
func IdempotencyKey(invoiceID *string, partnerID string, payoutIDs []string) string {
	if invoiceID != nil && *invoiceID != "" {
		return fmt.Sprintf("%s-%s", *invoiceID, partnerID)
	}

	ids := append([]string(nil), payoutIDs...)
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return fmt.Sprintf("payouts-%s-%s", partnerID, hex.EncodeToString(sum[:])[:16])
}
