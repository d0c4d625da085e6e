package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

const accessTokenHours = 72

type AuthController struct {
	Google services.GoogleServiceProvider
}

func (m *AuthController) AuthRoutes(g *echo.Group) {
	g.POST("/google", m.GoogleSignIn)
	g.POST("/refresh-token", m.RefreshToken)
}

// GoogleSignIn verifies a Google ID token and signs the user in, creating the
// account on first use.
func (m *AuthController) GoogleSignIn(c echo.Context) error {
	googleCreds := new(models.GoogleAuthSignIn)
	if err := c.Bind(googleCreds); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if !models.ValidatePlatformRaw(googleCreds.Platform) {
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Please provide proper platform parameter"})
	}
	if err := c.Validate(googleCreds); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	payload, err := m.Google.ValidateIdToken(context.Background(), googleCreds.IdToken, os.Getenv("GOOGLE_CLIENT_ID"))
	if err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	googleId, ok := payload.Claims["sub"].(string)
	if !ok || googleId == "" {
		sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data %s", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	googleEmail, ok := payload.Claims["email"].(string)
	if !ok || googleEmail == "" {
		sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data email %s", payload.Claims))
		return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
	}
	pictureUrl, _ := payload.Claims["picture"].(string)
	googleName, _ := payload.Claims["name"].(string)

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	r := db.Where("google_id = ?", googleId).Limit(1).Find(&user)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
	}
	isNew := false
	if r.RowsAffected == 0 {
		// accounts created before Google sign-in are matched by email
		r = db.Where("email = ?", googleEmail).Limit(1).Find(&user)
		if r.Error != nil {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
		}
		if r.RowsAffected == 0 {
			isNew = true
			user = models.UserAccount{
				Email:  googleEmail,
				Status: "FINISHED_AUTH",
			}
		}
	}
	if user.Banned {
		return echo.ErrForbidden
	}

	user.GoogleID = googleId
	user.AvatarURL = pictureUrl
	if googleName != "" {
		user.Name = googleName
	}
	user.LastIp = c.RealIP()
	user.Platform = models.ScanPlatform(googleCreds.Platform)
	user.ConfirmedDeleteDate = nil
	if err := db.Save(&user).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Sorry, something wrong happened, please try again!"})
	}

	refreshToken, err := GenerateRefreshToken(fmt.Sprint(user.ID))
	if err != nil {
		fmt.Println(err)
		return echo.ErrInternalServerError
	}
	fmt.Println("User signed in with google: ", googleEmail, " new: ", isNew)
	return c.JSON(http.StatusOK, models.GoogleSignInOut{
		Id:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		New:          isNew,
		Avatar:       user.AvatarURL,
		AccessToken:  GenerateUserToken(fmt.Sprint(user.ID), c, accessTokenHours),
		RefreshToken: refreshToken,
	})
}

func (m *AuthController) RefreshToken(c echo.Context) error {
	tokenReq := new(models.RefreshTokenIn)
	if err := c.Bind(tokenReq); err != nil {
		fmt.Println(err)
		return echo.ErrBadRequest
	}
	if tokenReq.RefreshToken == "" {
		fmt.Println("Refresh token is empty")
		return echo.ErrBadRequest
	}

	token, err := jwt.Parse(tokenReq.RefreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		fmt.Println(err)
		return echo.ErrBadRequest
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return echo.ErrBadRequest
	}

	data, ok := claims["sub"].(string)
	if !ok {
		fmt.Println("Cannot convert sub to string!")
		return echo.ErrBadRequest
	}
	userId, err := strconv.Atoi(data)
	if err != nil || userId < 1 {
		fmt.Println("Error parsing sub of the user!!", data)
		return echo.ErrBadRequest
	}

	db := c.Get("__db").(*gorm.DB)
	var user models.UserAccount
	result := db.First(&user, userId)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		fmt.Println("Requested user not found!", userId)
		return echo.ErrForbidden
	}
	if result.Error != nil {
		fmt.Println("Error getting user while refreshing token", userId)
		return echo.ErrInternalServerError
	}
	if user.Banned {
		return echo.ErrUnauthorized
	}

	rt, err := GenerateRefreshToken(fmt.Sprint(userId))
	if err != nil {
		fmt.Println("Error refreshing token ", err)
		return echo.ErrInternalServerError
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  GenerateUserToken(fmt.Sprint(userId), c, accessTokenHours),
		"refresh_token": rt,
	})
}
