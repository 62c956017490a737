package main

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/avellia/show-ticketing/internal/allocation"
    "github.com/avellia/show-ticketing/internal/booking"
    "github.com/avellia/show-ticketing/internal/catalog"
    "github.com/avellia/show-ticketing/internal/config"
    "github.com/avellia/show-ticketing/internal/database"
    "github.com/avellia/show-ticketing/internal/handler"
    "github.com/avellia/show-ticketing/internal/hold"
    "github.com/avellia/show-ticketing/internal/queue"
    "github.com/avellia/show-ticketing/internal/repository"
    "github.com/avellia/show-ticketing/internal/router"
    "github.com/avellia/show-ticketing/internal/service/publisher"
    "github.com/avellia/show-ticketing/internal/sweeper"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("open database: %v", err)
    }
    defer db.Close()

    gateway := catalog.NewMySQLGateway(db)
    tickets := repository.NewTicketRepo(db)
    holds := repository.NewHoldRepo(db)
    orders := repository.NewOrderRepo(db)
    sessions := repository.NewPaymentSessionRepo(db)
    runner := database.TxRunner{DB: db}
    events := publisher.New(os.Getenv("RABBITMQ_URL"))

    validator := allocation.NewValidator(cfg.ReservationLead)
    holdManager := hold.NewManager(gateway, holds, tickets, runner, cfg.HoldTTL)
    bookingService := booking.NewService(gateway, validator, tickets, holds, orders, sessions,
        runner, events, cfg.PaymentURL)
    sweep := sweeper.New(gateway, tickets, runner, events, cfg.ReservationLead, cfg.SweepInterval)

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go sweep.Run(ctx)
    go func() {
        if err := queue.StartEventConsumer(); err != nil {
            log.Printf("event consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    rdb := config.NewRedisClient() // nil disables caching and rate limiting
    router.Register(e, cfg.JWTSecret, rdb,
        handler.NewHoldHandler(holdManager),
        handler.NewBookingHandler(bookingService),
        handler.NewPublicHandler(gateway, tickets, holds),
    )

    go func() {
        sig := make(chan os.Signal, 1)
        signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
        s := <-sig
        log.Printf("received signal %v, shutting down", s)
        cancel()
        _ = e.Close()
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
