package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cashcage/database"
	"cashcage/engine"
	"cashcage/jobs"
	"cashcage/routes"
	"cashcage/services"
	"cashcage/store/gormstore"
)

func engineConfig() engine.Config {
	cfg := engine.Config{}
	if raw := os.Getenv("CREDIT_AUTO_APPROVE_LIMIT"); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			logrus.Fatalf("invalid CREDIT_AUTO_APPROVE_LIMIT: %v", err)
		}
		cfg.AutoApproveLimit = limit
	}
	if raw := os.Getenv("LOCK_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			logrus.Fatalf("invalid LOCK_TIMEOUT: %v", err)
		}
		cfg.LockTimeout = timeout
	}
	return cfg
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file loaded")
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	database.Connect()

	var notifier engine.Notifier
	if n := services.NewNotifierFromEnv(); n != nil {
		notifier = n
		defer n.Close()
	}

	eng := engine.New(gormstore.New(database.DB), engineConfig(), notifier)

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3000"
	}

	app := fiber.New()
	routes.Setup(app, eng)
	jobs.StartEndOfDaySweep(eng)

	addr := fmt.Sprintf("%s:%s", host, port)
	logrus.Infof("server running at %s", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			logrus.Panicf("failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Info("gracefully shutting down")
	if err := app.Shutdown(); err != nil {
		logrus.Fatalf("server forced to shutdown: %v", err)
	}
	logrus.Info("server exited cleanly")
}
