package main

import (
	"log"
	"strconv"
	"time"

	"github.com/Nutr1t07/cpbot/internal/bot"
	"github.com/Nutr1t07/cpbot/internal/codeforces"
	"github.com/Nutr1t07/cpbot/internal/config"
	"github.com/Nutr1t07/cpbot/internal/database"
	"github.com/Nutr1t07/cpbot/internal/handlers"
	"github.com/Nutr1t07/cpbot/internal/middleware"
	"github.com/Nutr1t07/cpbot/internal/onebot"
	"github.com/Nutr1t07/cpbot/internal/services"
	"github.com/Nutr1t07/cpbot/internal/store"
	"github.com/Nutr1t07/cpbot/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	var st store.Store
	if cfg.DBDriver == "memory" {
		log.Println("using in-memory store, state will not survive restarts")
		st = store.NewMemory()
	} else {
		db := database.Connect(cfg)
		database.AutoMigrate(db)
		st = store.NewGorm(db)
	}

	cfTimeout, _ := strconv.Atoi(cfg.CFTimeoutSeconds)
	if cfTimeout <= 0 {
		cfTimeout = 10
	}
	cf := codeforces.NewClient(cfg.CFAPIURL, time.Duration(cfTimeout)*time.Second)

	hub := ws.NewHub()

	accountService := services.NewAccountService(st, cf)
	duelService := services.NewDuelService(st, hub)
	checkService := services.NewCheckService(st, cf, duelService)
	historyService := services.NewHistoryService(st)
	problemService := services.NewProblemService(st, cf)
	authService := services.NewAuthService(cfg.AdminUser, cfg.AdminPasswordHash, cfg.JWTSecret)

	syncHours, _ := strconv.Atoi(cfg.ProblemSyncHours)
	if syncHours <= 0 {
		syncHours = 24
	}
	sched, err := problemService.StartSyncScheduler(time.Duration(syncHours) * time.Hour)
	if err != nil {
		log.Fatalf("failed to start problem sync scheduler: %v", err)
	}
	defer sched.Shutdown()

	router := bot.NewRouter(accountService, duelService, checkService, problemService, historyService)
	client := onebot.NewClient(cfg.OneBotAPIURL, cfg.OneBotToken, 30*time.Second)
	gateway := onebot.NewGateway(client, router, cfg.WebhookSecret)

	if cfg.OneBotWSURL != "" {
		receiver := onebot.NewWSReceiver(cfg.OneBotWSURL, cfg.OneBotToken, gateway)
		receiver.Start()
		defer receiver.Stop()
	}

	authHandler := handlers.NewAuthHandler(authService)
	statsHandler := handlers.NewStatsHandler(st, accountService, duelService, historyService)
	feedHandler := handlers.NewFeedHandler(hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.POST("/", gateway.HandleWebhook)
	r.GET("/ws/feed", feedHandler.HandleFeed)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("")
		admin.Use(middleware.JWTAuth(authService))
		{
			admin.GET("/leaderboard", statsHandler.Leaderboard)
			admin.GET("/duels", statsHandler.ListDuels)
			admin.GET("/players/:handle", statsHandler.GetPlayer)
			admin.GET("/history/:h1/:h2", statsHandler.HeadToHead)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
