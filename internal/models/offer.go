package models

// Offer types accepted by the loans sheet
const (
	OfferTypeWeb = "WEB"
	OfferTypeH5  = "H5"
	OfferTypeCIC = "CIC"
)

// Offer statuses
const (
	OfferStatusActive   = "Active"
	OfferStatusInactive = "Inactive"
)

// LoanOffer is one row of the loans sheet (columns A..F)
type LoanOffer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	AffLink     string `json:"affLink"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// IsActive reports whether the offer is currently promoted
func (o LoanOffer) IsActive() bool {
	return o.Status == OfferStatusActive
}

// Row returns the sheet cells in column order
func (o LoanOffer) Row() []interface{} {
	return []interface{}{o.ID, o.Name, o.Type, o.AffLink, o.Status, o.Description}
}
