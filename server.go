package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"connect/api/handlers"
	"connect/api/middleware"
	"connect/api/routes"
	"connect/config"
	"connect/db"
	"connect/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	// Кеш и брокер опциональны: без них сервис ходит только в БД
	if err := services.InitRedis(); err != nil {
		log.Printf("WARNING: Redis is not available, running without cache: %v", err)
	}
	defer services.CloseRedis()

	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("WARNING: RabbitMQ is not available, post events will not be published: %v", err)
	}
	defer services.CloseRabbitMQ()

	authHandler, err := handlers.NewAuthHandler(context.Background(), config.AppConfig)
	if err != nil {
		log.Fatalf("Failed to initialize OAuth providers: %v", err)
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.PrometheusMiddleware("connect"))

	pprof.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.PublicApi(router, authHandler)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
