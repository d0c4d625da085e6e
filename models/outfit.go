package models

// Outfit is a named, saved combination of garments. Usage dates record the
// days it was worn.
type Outfit struct {
	JsonModel
	Name       string        `json:"name"`
	Owner      UserAccount   `json:"-"`
	OwnerID    uint          `gorm:"index" json:"-"`
	Clothes    []Clothing    `gorm:"many2many:outfit_clothes;" json:"clothes"`
	UsageDates []OutfitUsage `gorm:"constraint:OnDelete:CASCADE;" json:"usage_dates"`
	// generated outfits keep the score they were created with
	Score       *float64 `json:"score"`
	Explanation *string  `json:"explanation"`
}

type OutfitUsage struct {
	JsonModel
	OutfitID uint `gorm:"index" json:"-"`
	// YYYY-MM-DD
	Date string `gorm:"index" json:"date"`
}

func (o Outfit) UsageDateStrings() []string {
	dates := make([]string, 0, len(o.UsageDates))
	for _, usage := range o.UsageDates {
		dates = append(dates, usage.Date)
	}
	return dates
}

func (o Outfit) UsesClothing(clothingId uint) bool {
	for _, clothing := range o.Clothes {
		if clothing.ID == clothingId {
			return true
		}
	}
	return false
}
