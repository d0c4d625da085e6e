package dbhelper

import (
	"log"

	"gorm.io/gorm"

	"wardrobeapi/models"
)

// parents first; cleaning walks the list backwards
var wardrobeModels = []interface{}{
	&models.UserAccount{},
	&models.UserPushToken{},
	&models.Clothing{},
	&models.Outfit{},
	&models.OutfitUsage{},
}

// SetupCleaner empties every wardrobe table, join table first.
func SetupCleaner(db *gorm.DB) func() {
	return func() {
		db.Exec("DELETE FROM outfit_clothes")
		wipe := db.Session(&gorm.Session{AllowGlobalUpdate: true})
		for i := len(wardrobeModels) - 1; i >= 0; i-- {
			if err := wipe.Delete(wardrobeModels[i]).Error; err != nil {
				log.Printf("[DB] Failed to clean %T: %v\n", wardrobeModels[i], err)
			}
		}
	}
}

func MigrateAll(db *gorm.DB) {
	for _, model := range wardrobeModels {
		Migrate(db, model)
	}
}

func Migrate(db *gorm.DB, model interface{}) {
	if err := db.AutoMigrate(model); err != nil {
		log.Printf("[DB] Error while migrating %T\n", model)
		log.Fatal(err)
	}
}
