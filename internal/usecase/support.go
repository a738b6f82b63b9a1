// internal/usecase/support.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/repository"

	"go.uber.org/zap"
)

const (
	CardPartner    = "partner"
	CardWorkspaces = "workspaces"

	cardTTLSeconds = 300
)

// CustomerCardsRequest is the body Plain posts when it renders a thread.
type CustomerCardsRequest struct {
	CardKeys []string `json:"cardKeys"`
	Customer struct {
		ID         string  `json:"id"`
		Email      string  `json:"email"`
		ExternalID *string `json:"externalId"`
	} `json:"customer"`
}

type CustomerCardsResponse struct {
	Cards []Card `json:"cards"`
}

type Card struct {
	Key               string      `json:"key"`
	TimeToLiveSeconds int         `json:"timeToLiveSeconds"`
	Components        []Component `json:"components"`
}

// Component is one Plain UI component; exactly one field is set.
type Component struct {
	Text    *TextComponent    `json:"componentText,omitempty"`
	Row     *RowComponent     `json:"componentRow,omitempty"`
	Divider *DividerComponent `json:"componentDivider,omitempty"`
}

type TextComponent struct {
	Text      string `json:"text"`
	TextColor string `json:"textColor,omitempty"`
	TextSize  string `json:"textSize,omitempty"`
}

type RowComponent struct {
	MainContent  []Component `json:"rowMainContent"`
	AsideContent []Component `json:"rowAsideContent"`
}

type DividerComponent struct {
	SpacingSize string `json:"dividerSpacingSize"`
}

// SupportUsecase builds the partner and workspace cards shown next to a
// support thread.
type SupportUsecase struct {
	partners   repository.PartnerRepository
	workspaces repository.WorkspaceRepository
	logger     *zap.Logger
}

func NewSupportUsecase(partners repository.PartnerRepository, workspaces repository.WorkspaceRepository, logger *zap.Logger) *SupportUsecase {
	return &SupportUsecase{partners: partners, workspaces: workspaces, logger: logger}
}

func (uc *SupportUsecase) CustomerCards(ctx context.Context, req *CustomerCardsRequest) (*CustomerCardsResponse, error) {
	if req.Customer.Email == "" {
		return nil, fmt.Errorf("customer email is required: %w", domain.ErrInvalidRequest)
	}

	resp := &CustomerCardsResponse{Cards: []Card{}}
	for _, key := range req.CardKeys {
		var (
			card *Card
			err  error
		)
		switch key {
		case CardPartner:
			card, err = uc.partnerCard(ctx, req.Customer.Email)
		case CardWorkspaces:
			card, err = uc.workspacesCard(ctx, req.Customer.Email)
		default:
			uc.logger.Debug("ignoring unknown card key", zap.String("key", key))
			continue
		}
		if err != nil {
			return nil, err
		}
		resp.Cards = append(resp.Cards, *card)
	}
	return resp, nil
}

func (uc *SupportUsecase) partnerCard(ctx context.Context, email string) (*Card, error) {
	card := &Card{Key: CardPartner, TimeToLiveSeconds: cardTTLSeconds}

	p, err := uc.partners.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		card.Components = []Component{text("No partner profile for this customer", "MUTED")}
		return card, nil
	}
	if err != nil {
		return nil, err
	}

	method := "none"
	if m, err := ResolveMethod(p); err == nil {
		method = string(m)
	}
	payouts := "disabled"
	if p.PayoutsEnabled() {
		payouts = "enabled since " + p.PayoutsEnabledAt.Format("2006-01-02")
	}

	card.Components = []Component{
		row("Partner", p.Name),
		row("Partner ID", p.ID),
		row("Payout method", method),
		row("Payouts", payouts),
	}
	if p.Country != nil {
		card.Components = append(card.Components, row("Country", *p.Country))
	}
	return card, nil
}

func (uc *SupportUsecase) workspacesCard(ctx context.Context, email string) (*Card, error) {
	card := &Card{Key: CardWorkspaces, TimeToLiveSeconds: cardTTLSeconds}

	list, err := uc.workspaces.ListByUserEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		card.Components = []Component{text("No workspaces for this customer", "MUTED")}
		return card, nil
	}

	for i, w := range list {
		if i > 0 {
			card.Components = append(card.Components, Component{Divider: &DividerComponent{SpacingSize: "M"}})
		}
		card.Components = append(card.Components,
			row(w.Name, w.Plan),
			row("Slug", w.Slug),
			row("Usage", fmt.Sprintf("%d / %d events", w.Usage, w.UsageLimit)),
			row("Links", fmt.Sprintf("%d", w.LinksUsage)),
		)
	}
	return card, nil
}

func text(s, color string) Component {
	return Component{Text: &TextComponent{Text: s, TextColor: color}}
}

func row(label, value string) Component {
	return Component{Row: &RowComponent{
		MainContent:  []Component{{Text: &TextComponent{Text: label, TextSize: "S", TextColor: "MUTED"}}},
		AsideContent: []Component{{Text: &TextComponent{Text: value, TextSize: "S"}}},
	}}
}
