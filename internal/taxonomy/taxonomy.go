// Package taxonomy maps free-text detector labels to a closed set of vehicle
// categories. The table is ordered: the first category whose keyword list
// matches wins, so overlapping keywords resolve deterministically.
package taxonomy

import (
	"strings"

	"sentinel-worker-go/internal/models"
)

// Category is one entry of the taxonomy table
type Category struct {
	Type     models.VehicleType
	Keywords []string
}

// Table is an ordered label taxonomy. It is a pure lookup structure; new
// categories can be added without touching any dispatch logic.
type Table struct {
	categories []Category
}

// New builds a taxonomy from an ordered category list
func New(categories []Category) *Table {
	return &Table{categories: categories}
}

// Default returns the stock six-category table
func Default() *Table {
	return New([]Category{
		{Type: models.VehicleTypeCar, Keywords: []string{"car", "automobile", "vehicle"}},
		{Type: models.VehicleTypeTruck, Keywords: []string{"truck", "lorry", "van"}},
		{Type: models.VehicleTypeMotorcycle, Keywords: []string{"motorcycle", "motorbike", "bike", "scooter"}},
		{Type: models.VehicleTypeBus, Keywords: []string{"bus", "coach"}},
		{Type: models.VehicleTypeBicycle, Keywords: []string{"bicycle", "cycle"}},
		{Type: models.VehicleTypePerson, Keywords: []string{"person", "pedestrian", "human"}},
	})
}

// Classify maps a label to its vehicle type. Case-insensitive substring
// matching, first matching category wins, no match yields VehicleTypeOther.
// Total: never fails.
func (t *Table) Classify(label string) models.VehicleType {
	labelLower := strings.ToLower(label)

	for _, cat := range t.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(labelLower, kw) {
				return cat.Type
			}
		}
	}
	return models.VehicleTypeOther
}

// Types returns the category types in table order, without the Other fallback
func (t *Table) Types() []models.VehicleType {
	types := make([]models.VehicleType, 0, len(t.categories))
	for _, cat := range t.categories {
		types = append(types, cat.Type)
	}
	return types
}
