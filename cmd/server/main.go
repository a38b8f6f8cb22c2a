package main

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"letter-rush/internal/config"
	"letter-rush/internal/db"
	"letter-rush/internal/game"
	"letter-rush/internal/sched"
	"letter-rush/internal/server"
	"letter-rush/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var repo game.Repository
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		repo = store.NewRedis(client)
		log.Printf("using redis store addr=%s", cfg.RedisAddr)
	} else {
		repo = store.NewMemory()
		log.Println("using in-memory store")
	}

	conn, err := db.Open()
	if err != nil {
		log.Printf("running without archive database: %v", err)
		conn = nil
	}
	if conn != nil {
		sqlDB, err := conn.DB()
		if err == nil {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
			sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
	}

	manager := game.NewManager(repo)
	timers := sched.NewTimers()
	defer timers.StopAll()

	srv := server.New(manager, conn, timers, cfg)
	log.Printf("letter-rush server listening on :%s", cfg.Port)
	if err := srv.Router().Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
