package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("climate", models.ValidateClimate)
	v.RegisterValidation("isodate", ValidateISODate)
	return v
}

// Collaborators groups what the HTTP layer talks to besides the database.
type Collaborators struct {
	Google      services.GoogleServiceProvider
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	Enqueuer    tasks.Enqueuer
	URLCache    services.URLCacheServiceProvider
	Weather     services.WeatherServiceProvider
	Generator   *outfitgen.Generator
}

func SetupServer(db *gorm.DB, deps Collaborators) *echo.Echo {
	err := deps.AWSService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}
	if deps.Generator == nil {
		deps.Generator = outfitgen.NewGenerator(nil)
	}
	fmt.Println("Firebase configured:", deps.FirebaseApp != nil)

	e := echo.New()
	e.Validator = &CustomValidator{validator: NewValidator()}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", deps.Enqueuer)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	authGroup := e.Group("/auth")
	authController := AuthController{Google: deps.Google}
	authController.AuthRoutes(authGroup)

	wardrobeGroup := e.Group("/wardrobe", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	wardrobeGroup.Use(UserMiddleware)

	profileController := ProfileController{}
	profileController.ProfileRoutes(wardrobeGroup.Group("/profile"))

	clothesController := ClothesController{AWSService: deps.AWSService, URLCache: deps.URLCache}
	clothesController.ClothingRoutes(wardrobeGroup.Group("/clothes"))

	outfitsController := OutfitsController{
		AWSService: deps.AWSService,
		URLCache:   deps.URLCache,
		Weather:    deps.Weather,
		Generator:  deps.Generator,
	}
	outfitsController.OutfitRoutes(wardrobeGroup.Group("/outfits"))

	weatherController := WeatherController{Weather: deps.Weather}
	weatherController.WeatherRoutes(wardrobeGroup.Group("/weather"))

	return e
}
