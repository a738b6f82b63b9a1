package repository

import (
	"context"
	"regexp"
	"testing"

	"partner-payouts/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnerRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewPartnerRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM partners WHERE id = $1")).
		WithArgs("pn_1").
		WillReturnRows(partnerRows("pn_1"))

	p, err := repo.GetByID(context.Background(), "pn_1")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", p.AccountFor(domain.PayoutMethodConnect))
	assert.False(t, p.PayoutsEnabled())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartnerRepo_GetByIDMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPartnerRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM partners")).
		WithArgs("pn_404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "pn_404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPartnerRepo_ClearRecipientColumn(t *testing.T) {
	cases := map[domain.PayoutMethod]string{
		domain.PayoutMethodStablecoin: "stripe_recipient_id = NULL",
		domain.PayoutMethodConnect:    "stripe_connect_id = NULL",
		domain.PayoutMethodPayPal:     "paypal_email = NULL",
	}
	for method, fragment := range cases {
		t.Run(string(method), func(t *testing.T) {
			mock := newMock(t)
			repo := NewPartnerRepository(mock)

			mock.ExpectExec(regexp.QuoteMeta(fragment + ", payouts_enabled_at = NULL")).
				WithArgs("pn_1").
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			require.NoError(t, repo.ClearRecipient(context.Background(), "pn_1", method))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPartnerRepo_SetPayPalEmailMissingPartner(t *testing.T) {
	mock := newMock(t)
	repo := NewPartnerRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("SET paypal_email = $2")).
		WithArgs("pn_1", "p@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetPayPalEmail(context.Background(), "pn_1", "p@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
