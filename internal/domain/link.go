// internal/domain/link.go
package domain

// Link is a short link owned by a workspace, optionally attributed to a partner.
type Link struct {
	ID          string  `json:"id"`
	Domain      string  `json:"domain"`
	Key         string  `json:"key"`
	URL         string  `json:"url"`
	Image       *string `json:"image,omitempty"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
	ProgramID   *string `json:"program_id,omitempty"`
	PartnerID   *string `json:"partner_id,omitempty"`
}

// PartnerFootprint is everything removed when a partner is deleted.
type PartnerFootprint struct {
	Partner     *Partner
	Links       []*Link
	Commissions int64
	Payouts     int64
	Customers   int64
	Enrollments int64
}
