package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"wardrobeapi/colorharmony"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
)

type CreateClothingIn struct {
	Name         string           `json:"name" validate:"omitempty,max=100"`
	Category     models.Category  `json:"category" validate:"required,category"`
	Climates     []models.Climate `json:"climates" validate:"omitempty,dive,climate"`
	Description  *string          `json:"description" validate:"omitempty,max=500"`
	FileName     *string          `json:"file_name" validate:"required,max=200"`
	ProcessImage bool             `json:"process_image"`
}

type ColorIn struct {
	Hex       string  `json:"hex" validate:"required"`
	Frequency float64 `json:"frequency" validate:"min=0,max=1"`
}

type UpdateClothingIn struct {
	Name        *string           `json:"name" validate:"omitempty,max=100"`
	Description *string           `json:"description" validate:"omitempty,max=500"`
	Category    *models.Category  `json:"category" validate:"omitempty,category"`
	Climates    *[]models.Climate `json:"climates" validate:"omitempty,dive,climate"`
	Colors      *[]ColorIn        `json:"colors" validate:"omitempty,dive"`
}

type ClothingResponse struct {
	ID               uint               `json:"id"`
	Name             string             `json:"name"`
	Description      *string            `json:"description"`
	Category         models.Category    `json:"category"`
	Climates         []models.Climate   `json:"climates"`
	Colors           []models.ColorInfo `json:"colors"`
	ProcessingStatus string             `json:"processing_status"`
	Uri              *string            `json:"uri,omitempty"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at"`
}

type ClothingCreatedResponse struct {
	ClothingResponse ClothingResponse `json:"clothes"`
	FileUploadUrl    string           `json:"file_upload_url"`
}

type ClothesListResponse struct {
	Tops        []ClothingResponse `json:"tops"`
	Bottoms     []ClothingResponse `json:"bottoms"`
	Footwear    []ClothingResponse `json:"footwear"`
	Outerwear   []ClothingResponse `json:"outerwear"`
	Accessories []ClothingResponse `json:"accessories"`
}

type OutfitRefResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ClothesController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
}

func (controller *ClothesController) ClothingRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateClothing)
	g.GET("/list", controller.ListClothes)
	g.GET("/:id", controller.GetClothing)
	g.PATCH("/:id", controller.UpdateClothing)
	g.DELETE("/:id", controller.DeleteClothing)
	g.GET("/:id/outfits", controller.ClothingOutfits)
}

func newClothingResponse(item models.Clothing, uri *string) ClothingResponse {
	climates := []models.Climate(item.Climates)
	if climates == nil {
		climates = []models.Climate{}
	}
	colors := []models.ColorInfo(item.Colors)
	if colors == nil {
		colors = []models.ColorInfo{}
	}
	return ClothingResponse{
		ID:               item.ID,
		Name:             item.Name,
		Description:      item.Description,
		Category:         item.Category,
		Climates:         climates,
		Colors:           colors,
		ProcessingStatus: item.ProcessingStatus,
		Uri:              uri,
		CreatedAt:        item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// safeObjectName keeps the base name of the uploaded file, without spaces.
func safeObjectName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	return strings.Join(strings.Fields(base), "-")
}

func (controller *ClothesController) CreateClothing(c echo.Context) error {
	var req CreateClothingIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if req.FileName == nil || *req.FileName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, it seems image was not provided, please try again"})
	}
	if !services.IsAllowedImage(*req.FileName) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Only jpg, png and webp images are supported"})
	}
	var enqueuer tasks.Enqueuer
	if req.ProcessImage {
		enqueuer, ok = c.Get("__asynqclient").(tasks.Enqueuer)
		if !ok || enqueuer == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Service is not available, please try again a bit later"})
		}
	}

	clothing := models.Clothing{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		Category:         req.Category,
		Climates:         req.Climates,
		OwnerID:          user.ID,
		ProcessingStatus: models.ProcessingIdle,
	}
	objectKey := fmt.Sprintf("clothes/%d/%s-%s", user.ID, uuid.NewString(), safeObjectName(*req.FileName))
	uploadUrl, err := controller.AWSService.PresignLink(context.Background(), services.GetEnv("R2_BUCKET_NAME", ""), objectKey)
	if err != nil {
		log.Printf("Unable to presign upload for %s!, %s", objectKey, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Error while creating clothe with attachment",
		})
	}
	clothing.ImageURL = &objectKey
	if req.ProcessImage {
		clothing.ProcessingStatus = models.ProcessingPending
		clothing.AlertWhenProcessed = true
	}

	if err := db.Create(&clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save clothing"})
	}

	if req.ProcessImage {
		task, err := tasks.NewClothingProcessingTask(clothing.ID)
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process clothing, please try again"})
		}
		info, err := enqueuer.Enqueue(task, asynq.MaxRetry(tasks.MaxProcessRetries), asynq.Queue(tasks.ProcessingQueue))
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process clothing, please try again"})
		}
		fmt.Println("[Queue] Process clothing task submitted, Clothing ID: ", clothing.ID, " Task ID: ", info.ID)
	}

	return c.JSON(http.StatusCreated, ClothingCreatedResponse{
		ClothingResponse: newClothingResponse(clothing, nil),
		FileUploadUrl:    uploadUrl,
	})
}

// resolveImageURL prefers the URL cache and falls back to presigning
// directly when the cache itself fails.
func resolveImageURL(ctx context.Context, cache services.URLCacheServiceProvider, awsService services.AWSServiceProvider, objectKey string) string {
	if cache != nil {
		url, err := cache.GetReadURL(ctx, objectKey)
		if err == nil {
			return url
		}
		log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("failure_type", "cache_system")
			scope.SetExtra("objectKey", objectKey)
			sentry.CaptureException(err)
		})
	}
	url, err := awsService.GetPresignedR2FileReadURL(ctx, services.GetEnv("R2_BUCKET_NAME", ""), objectKey)
	if err != nil {
		log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, err)
		sentry.CaptureException(err)
		return ""
	}
	return url
}

// presignClothingImages maps garments to responses, resolving image URLs
// concurrently. Order is preserved.
func presignClothingImages(ctx context.Context, cache services.URLCacheServiceProvider, awsService services.AWSServiceProvider, clothes []models.Clothing) []ClothingResponse {
	if len(clothes) == 0 {
		return []ClothingResponse{}
	}

	var wg sync.WaitGroup
	responses := make([]ClothingResponse, len(clothes))
	for i, item := range clothes {
		wg.Add(1)
		go func(index int, item models.Clothing) {
			defer wg.Done()
			var uri *string
			if item.ImageURL != nil && *item.ImageURL != "" {
				url := resolveImageURL(ctx, cache, awsService, *item.ImageURL)
				uri = &url
			}
			responses[index] = newClothingResponse(item, uri)
		}(i, item)
	}
	wg.Wait()
	return responses
}

func (controller *ClothesController) ListClothes(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var clothes []models.Clothing
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc, id desc").Find(&clothes).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}
	processed := presignClothingImages(c.Request().Context(), controller.URLCache, controller.AWSService, clothes)

	response := ClothesListResponse{
		Tops:        []ClothingResponse{},
		Bottoms:     []ClothingResponse{},
		Footwear:    []ClothingResponse{},
		Outerwear:   []ClothingResponse{},
		Accessories: []ClothingResponse{},
	}
	for _, resp := range processed {
		switch resp.Category {
		case models.CategoryTop:
			response.Tops = append(response.Tops, resp)
		case models.CategoryBottom:
			response.Bottoms = append(response.Bottoms, resp)
		case models.CategoryFootwear:
			response.Footwear = append(response.Footwear, resp)
		case models.CategoryOuterwear:
			response.Outerwear = append(response.Outerwear, resp)
		case models.CategoryAccessory:
			response.Accessories = append(response.Accessories, resp)
		}
	}
	return c.JSON(http.StatusOK, response)
}

// findOwnedClothing writes the error response itself when it returns false.
func findOwnedClothing(c echo.Context, db *gorm.DB, user models.UserAccount, clothing *models.Clothing) bool {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid clothing id"})
		return false
	}
	err := db.Where("id = ? AND owner_id = ?", id, user.ID).Take(clothing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, map[string]string{"error": "Clothing not found"})
		return false
	}
	if err != nil {
		sentry.CaptureException(err)
		c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothing"})
		return false
	}
	return true
}

func (controller *ClothesController) GetClothing(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var clothing models.Clothing
	if !findOwnedClothing(c, db, user, &clothing) {
		return nil
	}
	responses := presignClothingImages(c.Request().Context(), controller.URLCache, controller.AWSService, []models.Clothing{clothing})
	return c.JSON(http.StatusOK, responses[0])
}

func (controller *ClothesController) UpdateClothing(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var req UpdateClothingIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	var clothing models.Clothing
	if !findOwnedClothing(c, db, user, &clothing) {
		return nil
	}

	if req.Name != nil {
		clothing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		clothing.Description = req.Description
	}
	if req.Category != nil {
		clothing.Category = *req.Category
	}
	if req.Climates != nil {
		clothing.Climates = *req.Climates
	}
	if req.Colors != nil {
		colors := make([]models.ColorInfo, 0, len(*req.Colors))
		for _, in := range *req.Colors {
			if _, err := colorharmony.HexToHSL(in.Hex); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			colors = append(colors, models.ColorInfo{Hex: strings.TrimSpace(in.Hex), Frequency: in.Frequency})
		}
		clothing.Colors = colors
	}

	if err := db.Save(&clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update clothing"})
	}
	fmt.Printf("[Clothing: %v] Updated by user %v\n", clothing.ID, user.ID)
	responses := presignClothingImages(c.Request().Context(), controller.URLCache, controller.AWSService, []models.Clothing{clothing})
	return c.JSON(http.StatusOK, responses[0])
}

func outfitsUsingClothing(db *gorm.DB, ownerId uint, clothingId uint) ([]OutfitRefResponse, error) {
	var outfits []models.Outfit
	err := db.Joins("JOIN outfit_clothes ON outfit_clothes.outfit_id = outfits.id").
		Where("outfit_clothes.clothing_id = ? AND outfits.owner_id = ?", clothingId, ownerId).
		Order("outfits.id").
		Find(&outfits).Error
	if err != nil {
		return nil, err
	}
	refs := make([]OutfitRefResponse, 0, len(outfits))
	for _, outfit := range outfits {
		refs = append(refs, OutfitRefResponse{ID: outfit.ID, Name: outfit.Name})
	}
	return refs, nil
}

func (controller *ClothesController) ClothingOutfits(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var clothing models.Clothing
	if !findOwnedClothing(c, db, user, &clothing) {
		return nil
	}
	refs, err := outfitsUsingClothing(db, user.ID, clothing.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	return c.JSON(http.StatusOK, echo.Map{"in_use": len(refs) > 0, "outfits": refs})
}

// DeleteClothing refuses to delete a garment still used by outfits unless
// force=true, which detaches it from them first.
func (controller *ClothesController) DeleteClothing(c echo.Context) error {
	user, db, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	var clothing models.Clothing
	if !findOwnedClothing(c, db, user, &clothing) {
		return nil
	}
	refs, err := outfitsUsingClothing(db, user.ID, clothing.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	if len(refs) > 0 && c.QueryParam("force") != "true" {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "Clothing is used by saved outfits",
			"outfits": refs,
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM outfit_clothes WHERE clothing_id = ?", clothing.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&clothing).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete clothing"})
	}
	if clothing.ImageURL != nil && controller.URLCache != nil {
		if err := controller.URLCache.Forget(c.Request().Context(), *clothing.ImageURL); err != nil {
			fmt.Printf("[Clothing: %v] Failed to forget cached link: %v\n", clothing.ID, err)
		}
	}
	fmt.Printf("[Clothing: %v] Deleted, detached from %d outfits\n", clothing.ID, len(refs))
	return c.NoContent(http.StatusNoContent)
}
