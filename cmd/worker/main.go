package main

import (
	"context"
	"log"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"wardrobeapi/dbhelper"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
)

func runScheduler(redis asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 7 * * *", // 7:00 AM daily
			task: tasks.NewDailyOutfitTask(),
			desc: "Daily outfit suggestions",
		},
	}

	for _, s := range scheduled {
		entryID, err := scheduler.Register(s.cron, s.task, asynq.Queue(tasks.DefaultQueue))
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", s.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", s.desc, entryID, s.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	services.LoadEnv()

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         os.Getenv("SENTRY_DSN"),
		Environment: services.GetEnv("ENV", "local"),
		Release:     "wardrobeapi-worker@1.0.0",
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	redis := asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}
	srv := asynq.NewServer(
		redis,
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			tasks.ProcessingQueue: 7,
			tasks.DefaultQueue:    3,
		}},
	)

	awsService := &services.AWSService{}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Printf("error initializing firebase app: %v\n", err)
		app = nil
	}
	weatherCache, err := services.NewDefaultWeatherCache()
	if err != nil {
		log.Fatal("[Queue] Failed to initialize weather cache")
	}
	weather := services.NewOpenWeatherService(os.Getenv("OPENWEATHER_API_KEY"), weatherCache)
	extractor := services.NewColorExtractor()
	classifier := services.NewGoogleClothingClassifier(os.Getenv("GOOGLE_API_KEY"))
	generator := outfitgen.NewGenerator(nil)

	db := dbhelper.SetupDB()

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeClothingProcess, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleClothingProcessingTask(ctx, t, db, awsService, extractor, classifier, app)
	})
	mux.HandleFunc(tasks.TypeDailyOutfit, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleDailyOutfitTask(ctx, t, db, weather, generator, app)
	})

	go runScheduler(redis)
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
