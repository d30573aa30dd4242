package models

// Supplier is a farmer eligible for ranking. Suppliers are owned by the
// onboarding system; the ranking service only reads them.
type Supplier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RegionID   string `json:"regionId"`
	RegionCode string `json:"regionCode,omitempty"`
	Active     bool   `json:"active"`
}

// PopulationFilter narrows a recompute run to one region or one supplier.
type PopulationFilter struct {
	RegionID   string `json:"regionId,omitempty"`
	SupplierID string `json:"supplierId,omitempty"`
}
