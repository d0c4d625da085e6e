package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"wardrobeapi/colorharmony"
	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
)

const NotEnoughGarmentsMessage = "Not enough compatible garments for this weather"

type CreateOutfitIn struct {
	Name        string   `json:"name" validate:"required,max=100"`
	ClothingIDs []uint   `json:"clothing_ids" validate:"required,min=1"`
	UsageDates  []string `json:"usage_dates" validate:"omitempty,dive,isodate"`
}

type UpdateOutfitIn struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	ClothingIDs *[]uint `json:"clothing_ids" validate:"omitempty,min=1"`
}

type OutfitUsageIn struct {
	Date string `json:"date" validate:"required,isodate"`
}

type GenerateOutfitIn struct {
	Climate          *models.Climate `json:"climate" validate:"omitempty,climate"`
	Latitude         *float64        `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude        *float64        `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IncludeOuterwear *bool           `json:"include_outerwear"`
	ColorWeight      *float64        `json:"color_weight" validate:"omitempty,min=0,max=1"`
	// Save stores the generated outfit with its score
	Save bool   `json:"save"`
	Name string `json:"name" validate:"omitempty,max=100"`
}

type OutfitResponse struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Clothes     []ClothingResponse `json:"clothes"`
	UsageDates  []string           `json:"usage_dates"`
	Score       *float64           `json:"score"`
	Explanation *string            `json:"explanation"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type GeneratedOutfitResponse struct {
	Items        []ClothingResponse       `json:"items"`
	Score        outfitgen.Score          `json:"score"`
	ColorPalette []models.ColorInfo       `json:"color_palette"`
	PairScores   []colorharmony.PairScore `json:"pair_scores"`
	Explanation  string                   `json:"explanation"`
	SavedID      *uint                    `json:"saved_id,omitempty"`
}

type GenerateOutfitResponse struct {
	Outfit      *GeneratedOutfitResponse `json:"outfit"`
	Suggestions []string                 `json:"suggestions"`
	Climate     models.Climate           `json:"climate"`
	Weather     *models.WeatherData      `json:"weather,omitempty"`
	Message     string                   `json:"message"`
}

type OutfitsController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
	Weather    services.WeatherServiceProvider
	Generator  *outfitgen.Generator
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("", controller.CreateOutfit)
	g.POST("/", controller.CreateOutfit)
	g.GET("", controller.ListOutfits)
	g.GET("/", controller.ListOutfits)
	g.GET("/by-date", controller.OutfitsByDate)
	g.POST("/generate", controller.GenerateOutfit)
	g.GET("/:id", controller.GetOutfit)
	g.PATCH("/:id", controller.UpdateOutfit)
	g.DELETE("/:id", controller.DeleteOutfit)
	g.POST("/:id/usage", controller.AddUsage)
	g.DELETE("/:id/usage", controller.RemoveUsage)
}

func (controller *OutfitsController) outfitResponses(ctx context.Context, outfits []models.Outfit) []OutfitResponse {
	responses := make([]OutfitResponse, 0, len(outfits))
	for _, outfit := range outfits {
		dates := outfit.UsageDateStrings()
		slices.Sort(dates)
		responses = append(responses, OutfitResponse{
			ID:          outfit.ID,
			Name:        outfit.Name,
			Clothes:     presignClothingImages(ctx, controller.URLCache, controller.AWSService, outfit.Clothes),
			UsageDates:  dates,
			Score:       outfit.Score,
			Explanation: outfit.Explanation,
			CreatedAt:   outfit.CreatedAt.Format("2006-01-02T15:04:05Z"),
			UpdatedAt:   outfit.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return responses
}

func preloadOutfit(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Clothes", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("UsageDates", func(tx *gorm.DB) *gorm.DB { return tx.Order("date") })
}

// ownedClothes loads the garments by id and fails when any of them is missing
// or belongs to someone else.
func ownedClothes(db *gorm.DB, ownerId uint, ids []uint) ([]models.Clothing, error) {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	var clothes []models.Clothing
	if err := db.Where("id IN ? AND owner_id = ?", unique, ownerId).Order("id").Find(&clothes).Error; err != nil {
		return nil, err
	}
	if len(clothes) != len(unique) {
		return nil, errUnknownClothing
	}
	return clothes, nil
}

var errUnknownClothing = errors.New("some clothes do not exist")

func uniqueDates(dates []string) []models.OutfitUsage {
	usages := []models.OutfitUsage{}
	seen := map[string]bool{}
	for _, date := range dates {
		if seen[date] {
			continue
		}
		seen[date] = true
		usages = append(usages, models.OutfitUsage{Date: date})
	}
	return usages
}

func (controller *OutfitsController) CreateOutfit(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req CreateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	clothes, err := ownedClothes(db, user.ID, req.ClothingIDs)
	if errors.Is(err, errUnknownClothing) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Some clothes were not found in your wardrobe"})
	}
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}

	outfit := models.Outfit{
		Name:       strings.TrimSpace(req.Name),
		OwnerID:    user.ID,
		Clothes:    clothes,
		UsageDates: uniqueDates(req.UsageDates),
	}
	if err := db.Omit("Clothes.*").Create(&outfit).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save outfit"})
	}
	fmt.Printf("[Outfit: %v] Created by user %v with %d clothes\n", outfit.ID, user.ID, len(clothes))
	return c.JSON(http.StatusCreated, controller.outfitResponses(c.Request().Context(), []models.Outfit{outfit})[0])
}

func (controller *OutfitsController) ListOutfits(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var outfits []models.Outfit
	if err := preloadOutfit(db).Where("owner_id = ?", user.ID).Order("created_at desc, id desc").Find(&outfits).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	return c.JSON(http.StatusOK, controller.outfitResponses(c.Request().Context(), outfits))
}

// OutfitsByDate backs the calendar view.
func (controller *OutfitsController) OutfitsByDate(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	date := c.QueryParam("date")
	if !IsISODate(date) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be formatted as YYYY-MM-DD"})
	}
	var outfits []models.Outfit
	err := preloadOutfit(db).
		Where("owner_id = ? AND id IN (?)", user.ID, db.Model(&models.OutfitUsage{}).Select("outfit_id").Where("date = ?", date)).
		Order("id").
		Find(&outfits).Error
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	return c.JSON(http.StatusOK, controller.outfitResponses(c.Request().Context(), outfits))
}

// findOwnedOutfit writes the error response itself when it returns false.
func findOwnedOutfit(c echo.Context, db *gorm.DB, user models.UserAccount, outfit *models.Outfit) bool {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid outfit id"})
		return false
	}
	err := preloadOutfit(db).Where("id = ? AND owner_id = ?", id, user.ID).Take(outfit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, map[string]string{"error": "Outfit not found"})
		return false
	}
	if err != nil {
		sentry.CaptureException(err)
		c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
		return false
	}
	return true
}

func (controller *OutfitsController) GetOutfit(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var outfit models.Outfit
	if !findOwnedOutfit(c, db, user, &outfit) {
		return nil
	}
	return c.JSON(http.StatusOK, controller.outfitResponses(c.Request().Context(), []models.Outfit{outfit})[0])
}

func (controller *OutfitsController) UpdateOutfit(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req UpdateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	var outfit models.Outfit
	if !findOwnedOutfit(c, db, user, &outfit) {
		return nil
	}

	var clothes []models.Clothing
	if req.ClothingIDs != nil {
		var err error
		clothes, err = ownedClothes(db, user.ID, *req.ClothingIDs)
		if errors.Is(err, errUnknownClothing) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Some clothes were not found in your wardrobe"})
		}
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			if err := tx.Model(&outfit).Update("name", strings.TrimSpace(*req.Name)).Error; err != nil {
				return err
			}
		}
		if req.ClothingIDs != nil {
			return tx.Model(&outfit).Association("Clothes").Replace(clothes)
		}
		return nil
	})
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update outfit"})
	}

	var updated models.Outfit
	if err := preloadOutfit(db).Take(&updated, outfit.ID).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
	}
	return c.JSON(http.StatusOK, controller.outfitResponses(c.Request().Context(), []models.Outfit{updated})[0])
}

func (controller *OutfitsController) DeleteOutfit(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var outfit models.Outfit
	if !findOwnedOutfit(c, db, user, &outfit) {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&outfit).Association("Clothes").Clear(); err != nil {
			return err
		}
		if err := tx.Where("outfit_id = ?", outfit.ID).Delete(&models.OutfitUsage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Outfit{}, outfit.ID).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete outfit"})
	}
	fmt.Printf("[Outfit: %v] Deleted by user %v\n", outfit.ID, user.ID)
	return c.NoContent(http.StatusNoContent)
}

func (controller *OutfitsController) bindUsage(c echo.Context) (models.UserAccount, *gorm.DB, models.Outfit, string, bool) {
	var outfit models.Outfit
	user, db, ok := requestScope(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return user, nil, outfit, "", false
	}
	var req OutfitUsageIn
	if err := c.Bind(&req); err != nil {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return user, nil, outfit, "", false
	}
	if err := c.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		return user, nil, outfit, "", false
	}
	if !findOwnedOutfit(c, db, user, &outfit) {
		return user, nil, outfit, "", false
	}
	return user, db, outfit, req.Date, true
}

func (controller *OutfitsController) usageResponse(c echo.Context, db *gorm.DB, outfitId uint) error {
	var outfit models.Outfit
	if err := preloadOutfit(db).Take(&outfit, outfitId).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
	}
	return c.JSON(http.StatusOK, controller.outfitResponses(c.Request().Context(), []models.Outfit{outfit})[0])
}

// AddUsage records that the outfit was worn on a date. Adding the same date
// twice keeps one record.
func (controller *OutfitsController) AddUsage(c echo.Context) error {
	_, db, outfit, date, ok := controller.bindUsage(c)
	if !ok {
		return nil
	}
	if !slices.Contains(outfit.UsageDateStrings(), date) {
		if err := db.Create(&models.OutfitUsage{OutfitID: outfit.ID, Date: date}).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save usage"})
		}
	}
	return controller.usageResponse(c, db, outfit.ID)
}

func (controller *OutfitsController) RemoveUsage(c echo.Context) error {
	_, db, outfit, date, ok := controller.bindUsage(c)
	if !ok {
		return nil
	}
	if err := db.Where("outfit_id = ? AND date = ?", outfit.ID, date).Delete(&models.OutfitUsage{}).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to remove usage"})
	}
	return controller.usageResponse(c, db, outfit.ID)
}

// resolveClimate picks the climate for generation: the requested one, then
// the weather at the requested coordinates, then at the saved location.
func (controller *OutfitsController) resolveClimate(ctx context.Context, req GenerateOutfitIn, user models.UserAccount) (models.Climate, *models.WeatherData, int, string) {
	if req.Climate != nil {
		return *req.Climate, nil, 0, ""
	}

	var lat, lon float64
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		lat, lon = *req.Latitude, *req.Longitude
	case user.HasLocation():
		lat, lon = *user.Latitude, *user.Longitude
	default:
		return "", nil, http.StatusBadRequest, "Provide a climate or a location"
	}
	if controller.Weather == nil {
		return "", nil, http.StatusServiceUnavailable, "Weather is not available"
	}
	forecast, err := controller.Weather.GetTodayForecast(ctx, lat, lon)
	if err != nil {
		fmt.Printf("[Weather] [User: %v] Forecast failed: %v\n", user.ID, err)
		return "", nil, http.StatusBadGateway, "Weather is not available"
	}
	return forecast.Climate, forecast, 0, ""
}

// GenerateOutfit suggests an outfit from the caller's wardrobe. A wardrobe
// that cannot cover the weather is answered with a null outfit, not an error.
func (controller *OutfitsController) GenerateOutfit(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req GenerateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	climate, forecast, status, problem := controller.resolveClimate(ctx, req, user)
	if problem != "" {
		return c.JSON(status, map[string]string{"error": problem})
	}

	var clothes []models.Clothing
	if err := db.Where("owner_id = ?", user.ID).Order("id").Find(&clothes).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}

	generated := controller.Generator.GenerateOutfit(outfitgen.Requirements{
		Climate:          climate,
		AvailableItems:   clothes,
		IncludeOuterwear: req.IncludeOuterwear,
		ColorWeight:      req.ColorWeight,
	})
	if generated == nil {
		fmt.Printf("[Outfit] [User: %v] Not enough garments for %s among %d\n", user.ID, climate, len(clothes))
		return c.JSON(http.StatusOK, GenerateOutfitResponse{
			Outfit:      nil,
			Suggestions: []string{},
			Climate:     climate,
			Weather:     forecast,
			Message:     NotEnoughGarmentsMessage,
		})
	}

	response := &GeneratedOutfitResponse{
		Items:        presignClothingImages(ctx, controller.URLCache, controller.AWSService, generated.Items),
		Score:        generated.Score,
		ColorPalette: generated.ColorPalette,
		PairScores:   generated.PairScores,
		Explanation:  generated.Explanation,
	}
	if req.Save {
		saved, err := saveGeneratedOutfit(db, user, req.Name, climate, *generated)
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save outfit"})
		}
		response.SavedID = &saved.ID
	}

	return c.JSON(http.StatusOK, GenerateOutfitResponse{
		Outfit:      response,
		Suggestions: outfitgen.GetOutfitSuggestions(*generated),
		Climate:     climate,
		Weather:     forecast,
		Message:     generated.Explanation,
	})
}

func saveGeneratedOutfit(db *gorm.DB, user models.UserAccount, name string, climate models.Climate, generated outfitgen.GeneratedOutfit) (*models.Outfit, error) {
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Outfit for %s weather", climate)
	}
	score := generated.Score.Overall
	explanation := generated.Explanation
	outfit := &models.Outfit{
		Name:        strings.TrimSpace(name),
		OwnerID:     user.ID,
		Clothes:     generated.Items,
		Score:       &score,
		Explanation: &explanation,
	}
	if err := db.Omit("Clothes.*").Create(outfit).Error; err != nil {
		return nil, err
	}
	return outfit, nil
}
