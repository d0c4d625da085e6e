package models

import "time"

type UserAccount struct {
	JsonModel
	Name     string   `json:"name"`
	Email    string   `json:"email" gorm:"unique"`
	Banned   bool     `gorm:"default:false" json:"-"`
	LastIp   string   `json:"-"`
	GoogleID string   `json:"-"`
	Platform Platform `json:"platform"`
	//"STARTED_AUTH", "FINISHED_AUTH"
	Status              string     `json:"-"`
	ConfirmedDeleteDate *time.Time `json:"-"`
	// Notifications settings
	ReceiveNotifications bool   `gorm:"default:true" json:"receive_notifications"`
	AvatarURL            string `json:"avatar_url"`

	// last known location, used by the morning suggestion when the app is closed
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (u UserAccount) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications bool `json:"receive_notifications"`
}

type UserLocationIn struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}
