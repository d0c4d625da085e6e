package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GoogleAuthSignIn struct {
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type RefreshTokenIn struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleSignInOut struct {
	Id           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	New          bool   `json:"new"`
	Avatar       string `json:"avatar"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserMeInfoOut struct {
	Id                   uint     `json:"id"`
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	AvatarURL            string   `json:"avatar_url"`
	ReceiveNotifications bool     `json:"receive_notifications"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	ClothesCount         int64    `json:"clothes_count"`
	OutfitsCount         int64    `json:"outfits_count"`
}
