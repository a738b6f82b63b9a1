// internal/usecase/resolver.go
package usecase

import "partner-payouts/internal/domain"

var methodPreference = []domain.PayoutMethod{
	domain.PayoutMethodStablecoin,
	domain.PayoutMethodConnect,
	domain.PayoutMethodPayPal,
}

// ResolveMethod picks the rail a partner is paid on. An explicit default wins
// when its account is configured; otherwise the first configured account in
// preference order.
func ResolveMethod(p *domain.Partner) (domain.PayoutMethod, error) {
	if !p.PayoutsEnabled() {
		return "", domain.ErrPayoutsNotEnabled
	}

	if p.DefaultPayoutMethod != nil && p.AccountFor(*p.DefaultPayoutMethod) != "" {
		return *p.DefaultPayoutMethod, nil
	}

	for _, m := range methodPreference {
		if p.AccountFor(m) != "" {
			return m, nil
		}
	}
	return "", domain.ErrNoPayoutMethod
}
