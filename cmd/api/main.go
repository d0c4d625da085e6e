package main

import (
	"context"
	"log"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"

	"wardrobeapi/controllers"
	"wardrobeapi/dbhelper"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
)

func main() {
	services.LoadEnv()

	err := sentry.Init(sentry.ClientOptions{
		// empty DSN disables reporting
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "wardrobeapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		// push notifications are skipped without firebase
		log.Printf("error initializing firebase app: %v\n", err)
		app = nil
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")})
	defer asynqClient.Close()

	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, bucketName)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}
	weatherCache, err := services.NewDefaultWeatherCache()
	if err != nil {
		log.Fatal("Failed to initialize weather cache")
	}

	e := controllers.SetupServer(db, controllers.Collaborators{
		Google:      services.GoogleService{},
		AWSService:  awsService,
		FirebaseApp: app,
		Enqueuer:    asynqClient,
		URLCache:    urlCache,
		Weather:     services.NewOpenWeatherService(os.Getenv("OPENWEATHER_API_KEY"), weatherCache),
		Generator:   outfitgen.NewGenerator(nil),
	})
	e.Debug = services.GetEnv("ENV", "local") == "local"

	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(10)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	e.Logger.Fatal(e.Start(":" + services.GetEnv("PORT", "8083")))
}
