package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
)

type ProfileController struct {
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", controller.Me)
	g.PUT("/location", controller.UpdateLocation)
	g.PUT("/settings", controller.UpdateSettings)
	g.POST("/push-token", controller.AddPushToken)
	g.DELETE("/push-token", controller.RemovePushToken)
	g.POST("/delete-account", controller.DeleteAccount)
}

func (controller *ProfileController) Me(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var clothesCount, outfitsCount int64
	if err := db.Model(&models.Clothing{}).Where("owner_id = ?", user.ID).Count(&clothesCount).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	if err := db.Model(&models.Outfit{}).Where("owner_id = ?", user.ID).Count(&outfitsCount).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}

	return c.JSON(http.StatusOK, models.UserMeInfoOut{
		Id:                   user.ID,
		Name:                 user.Name,
		Email:                user.Email,
		AvatarURL:            user.AvatarURL,
		ReceiveNotifications: user.ReceiveNotifications,
		Latitude:             user.Latitude,
		Longitude:            user.Longitude,
		ClothesCount:         clothesCount,
		OutfitsCount:         outfitsCount,
	})
}

// UpdateLocation stores the last known position used by the morning suggestion.
func (controller *ProfileController) UpdateLocation(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req models.UserLocationIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	err := db.Model(&user).Updates(map[string]interface{}{
		"latitude":  *req.Latitude,
		"longitude": *req.Longitude,
	}).Error
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save location"})
	}
	return c.JSON(http.StatusOK, models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
}

func (controller *ProfileController) UpdateSettings(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req models.UserSettingsIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	// map update so that false is written too
	if err := db.Model(&user).Updates(map[string]interface{}{"receive_notifications": req.ReceiveNotifications}).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"receive_notifications": req.ReceiveNotifications})
}

func (controller *ProfileController) AddPushToken(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req models.UserPushIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var token models.UserPushToken
	err := db.Where(models.UserPushToken{UserAccountID: user.ID, Token: req.Token}).
		Attrs(models.UserPushToken{Platform: models.ScanPlatform(req.Platform)}).
		FirstOrCreate(&token).Error
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save push token"})
	}
	if !token.Active || token.Platform != models.ScanPlatform(req.Platform) {
		token.Active = true
		token.Platform = models.ScanPlatform(req.Platform)
		if err := db.Save(&token).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save push token"})
		}
	}
	fmt.Printf("[User: %v] Push token registered for %s\n", user.ID, req.Platform)
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

func (controller *ProfileController) RemovePushToken(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req models.UserPushIn
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	err := db.Model(&models.UserPushToken{}).
		Where("user_account_id = ? AND token = ?", user.ID, req.Token).
		Update("active", false).Error
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to remove push token"})
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount only marks the account; the user is locked out from the next
// request on.
func (controller *ProfileController) DeleteAccount(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	now := time.Now().UTC()
	if err := db.Model(&user).Update("confirmed_delete_date", now).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete account"})
	}
	if err := db.Model(&models.UserPushToken{}).Where("user_account_id = ?", user.ID).Update("active", false).Error; err != nil {
		sentry.CaptureException(err)
	}
	fmt.Printf("[User: %v] Account deletion confirmed\n", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Your account will be deleted"})
}
