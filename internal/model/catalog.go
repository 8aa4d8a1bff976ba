package model

// ProductCatalogEntry is a product reference row. Owned by the reference
// store and read-only to every pipeline stage after ingest.
type ProductCatalogEntry struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
}
