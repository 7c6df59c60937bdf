package dto

// SupplierBalanceResponse reports a supplier's credit position.
type SupplierBalanceResponse struct {
	SupplierID string `json:"supplierId"`
	Available  string `json:"available"`
	Pending    string `json:"pending"`
}
