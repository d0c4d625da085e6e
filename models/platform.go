package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

var platformRegex = regexp.MustCompile("^(ios|android|web)$")

func ScanPlatform(value string) Platform {
	return Platform(value)
}

func ValidatePlatform(fl validator.FieldLevel) bool {
	return platformRegex.MatchString(fl.Field().String())
}

func ValidatePlatformRaw(value string) bool {
	return platformRegex.MatchString(value)
}
