package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	v1 "github.com/Taverna-Hub/Projeto-AVD/internal/controller/http/v1"
	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/usecase"
	"github.com/Taverna-Hub/Projeto-AVD/internal/repository/mlflow"
	psqlRepo "github.com/Taverna-Hub/Projeto-AVD/internal/repository/psql"
	"github.com/Taverna-Hub/Projeto-AVD/internal/repository/rabbitmq"
	"github.com/Taverna-Hub/Projeto-AVD/internal/repository/redis"
	"github.com/Taverna-Hub/Projeto-AVD/internal/repository/s3"
	"github.com/Taverna-Hub/Projeto-AVD/internal/repository/thingsboard"
	"github.com/Taverna-Hub/Projeto-AVD/pkg/client/psql"
	redisGo "github.com/Taverna-Hub/Projeto-AVD/pkg/client/redis"
	s3ClientGo "github.com/Taverna-Hub/Projeto-AVD/pkg/client/s3"
	"github.com/Taverna-Hub/Projeto-AVD/pkg/middleware"
)

type Config struct {
	MLflowURI string

	TBUrl      string
	TBUsername string
	TBPassword string

	RedisAddr string
	RedisDB   int

	PSQLHost     string
	PSQLPort     int
	PSQLUser     string
	PSQLPassword string
	PSQLDBName   string
	PSQLSSLMode  string

	S3Host      string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	RabbitMQURL string

	APIKey string

	Experiments []string
	Interval    time.Duration
	BatchSize   int
	MaxRecords  int
	DataPrefix  string
	Continuous  bool
}

func main() {

	cfg := loadConfig()
	ctx := context.Background()

	r := gin.Default()
	if cfg.APIKey != "" {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))
	}

	redisClient, err := redisGo.NewRedisClient(ctx, redisGo.Config{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RedisClient: redisClient,
		Limit:       10,
		Window:      time.Second,
		KeyPrefix:   "rl:",
	})
	r.Use(rl)

	db, err := psql.NewPostgresDB(psql.Config{
		Host:     cfg.PSQLHost,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPassword,
		DBName:   cfg.PSQLDBName,
		Port:     cfg.PSQLPort,
		SslMode:  cfg.PSQLSSLMode,
	})
	if err != nil {
		panic(err)
	}

	if err := db.AutoMigrate(&entity.RunOutcome{}); err != nil {
		panic(err)
	}

	outcomeRepo := psqlRepo.NewGormOutcomeRepo(db)

	redisRepo := redis.NewRedisRepo(redisClient)

	s3Client, err := s3ClientGo.NewS3Client(cfg.S3Host, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	if err != nil {
		panic(err)
	}
	s3Repo := s3.NewS3Repo(s3Client)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	outcomePublisher, err := rabbitmq.NewOutcomePublisher(conn, "sync.exchange", "sync.outcomes")
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}

	mlflowClient := mlflow.NewClient(cfg.MLflowURI)

	tbClient := thingsboard.NewClient(cfg.TBUrl, cfg.TBUsername, cfg.TBPassword)
	if err := tbClient.Login(ctx); err != nil {
		log.Fatalf("thingsboard login failed: %v", err)
	}

	uc := usecase.NewSyncUseCase(
		mlflowClient,
		tbClient,
		s3Repo,
		tbClient,
		redisRepo,
		outcomeRepo,
		outcomePublisher,
		usecase.SyncConfig{
			DataPrefix: cfg.DataPrefix,
			BatchSize:  cfg.BatchSize,
			MaxRecords: cfg.MaxRecords,
		},
	)
	handler := v1.NewSyncHandler(uc, outcomeRepo, redisRepo, cfg.Experiments, cfg.Interval)

	v1Group := r.Group("/api/v1")
	handler.Register(v1Group)

	if cfg.Continuous {
		if err := uc.Start(cfg.Experiments, cfg.Interval); err != nil {
			log.Fatalf("failed to start sync loop: %v", err)
		}
		log.Printf("continuous sync started: experiments=%v interval=%s", cfg.Experiments, cfg.Interval)
	}

	err = r.Run(":8080")
	if err != nil {
		panic(err)
	}
}

func loadConfig() Config {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	mustGetEnv := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Fatalf("Environment variable %s is not set", key)
		}
		return val
	}
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// REDIS
	redisHost := mustGetEnv("REDIS_HOST")
	redisPort := mustGetEnv("REDIS_PORT")
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}

	// PSQL
	psqlPort, err := strconv.Atoi(mustGetEnv("PSQL_PORT"))
	if err != nil {
		log.Fatalf("Invalid PSQL_PORT value: %v", err)
	}

	// RABBITMQ
	rmqUser := mustGetEnv("RABBITMQ_USER")
	rmqPassword := mustGetEnv("RABBITMQ_PASSWORD")
	rmqHost := mustGetEnv("RABBITMQ_HOST")
	rmqPort := mustGetEnv("RABBITMQ_PORT")
	rabbitMQURL := "amqp://" + rmqUser + ":" + rmqPassword + "@" + rmqHost + ":" + rmqPort + "/"

	// SYNC
	intervalSec, err := strconv.Atoi(getEnv("SYNC_INTERVAL", "60"))
	if err != nil {
		log.Fatalf("Invalid SYNC_INTERVAL value: %v", err)
	}
	batchSize, err := strconv.Atoi(getEnv("SYNC_BATCH_SIZE", "100"))
	if err != nil {
		log.Fatalf("Invalid SYNC_BATCH_SIZE value: %v", err)
	}
	maxRecords, err := strconv.Atoi(getEnv("SYNC_MAX_RECORDS", "1000"))
	if err != nil {
		log.Fatalf("Invalid SYNC_MAX_RECORDS value: %v", err)
	}

	var experiments []string
	for _, name := range strings.Split(getEnv("SYNC_EXPERIMENTS", "data-pipeline,Imputacao por Estacao"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			experiments = append(experiments, name)
		}
	}

	return Config{
		MLflowURI: mustGetEnv("MLFLOW_URI"),

		TBUrl:      mustGetEnv("TB_URL"),
		TBUsername: mustGetEnv("TB_USERNAME"),
		TBPassword: mustGetEnv("TB_PASSWORD"),

		RedisAddr: redisHost + ":" + redisPort,
		RedisDB:   redisDB,

		PSQLHost:     mustGetEnv("PSQL_HOST"),
		PSQLPort:     psqlPort,
		PSQLUser:     mustGetEnv("PSQL_USER"),
		PSQLPassword: mustGetEnv("PSQL_PASSWORD"),
		PSQLDBName:   mustGetEnv("PSQL_DB"),
		PSQLSSLMode:  mustGetEnv("PSQL_SSLMODE"),

		S3Host:      mustGetEnv("S3_HOST") + ":" + mustGetEnv("S3_PORT"),
		S3Bucket:    mustGetEnv("S3_BUCKET"),
		S3AccessKey: mustGetEnv("S3_ACCESS_KEY"),
		S3SecretKey: mustGetEnv("S3_SECRET_KEY"),
		S3UseSSL:    getEnv("S3_USE_SSL", "false") == "true",

		RabbitMQURL: rabbitMQURL,

		APIKey: os.Getenv("API_KEY"),

		Experiments: experiments,
		Interval:    time.Duration(intervalSec) * time.Second,
		BatchSize:   batchSize,
		MaxRecords:  maxRecords,
		DataPrefix:  getEnv("DATA_PREFIX", "dados_imputados/resultados/"),
		Continuous:  getEnv("SYNC_CONTINUOUS", "false") == "true",
	}
}
