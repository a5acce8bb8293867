// README: Entry point; loads config, wires services, starts HTTP server and background sweepers.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"banquet/internal/config"
	httptransport "banquet/internal/http"
	"banquet/internal/infra"
	"banquet/internal/maps"
	"banquet/internal/modules/booking"
	"banquet/internal/modules/chef"
	"banquet/internal/modules/escalation"
	"banquet/internal/modules/geo"
	"banquet/internal/modules/negotiation"
	"banquet/internal/modules/slot"
	"banquet/internal/modules/suggest"
	"banquet/internal/modules/travel"
	"banquet/internal/notify"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Maps.APIKey == "" {
		log.Fatal("BANQUET_MAPS_API_KEY is required")
	}
	if len(cfg.Geo.Stations) == 0 {
		log.Fatal("BANQUET_STATIONS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	geocodeService, err := maps.NewGeocodeService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps geocode init: %v", err)
	}
	routeService, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps route init: %v", err)
	}

	resolver := geo.NewResolver(geocodeService, cfg.Geo)
	oracle := travel.NewOracle(routeService, travel.NewRedisCache(redisClient), cfg.Travel)
	slots := slot.NewModel(cfg.Slot)
	engine := suggest.NewEngine(slots, cfg.Suggest, cfg.Slot.PreferredWindow)

	chefStore := chef.NewStore(dbPool)
	calendar := chef.NewCalendar()
	chefs, err := chefStore.ListAll(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range chefs {
		calendar.Register(c.ID)
	}
	if err := chefStore.LoadCommitments(ctx, calendar); err != nil {
		log.Fatal(err)
	}
	optimizer := chef.NewOptimizer(oracle, calendar, cfg.Optimizer)

	escalationQueue := escalation.NewPgQueue(dbPool)

	bookingStore := booking.NewPgStore(dbPool)
	bookingSvc := booking.NewService(
		bookingStore, resolver, slots, chefStore, optimizer, calendar,
		engine, escalationQueue, chefStore, cfg.Geo.BandPolicy,
	)

	negotiationStore := negotiation.NewPgStore(dbPool)
	messenger := notify.NewRedisMessenger(redisClient, cfg.Notify.Timeout)
	negotiationSvc := negotiation.NewService(negotiationStore, messenger, bookingSvc, cfg.Negotiation)
	bookingSvc.AttachNegotiator(negotiationSvc)

	handler := httptransport.NewRouter(bookingSvc, negotiationSvc, escalationQueue)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go negotiationSvc.RunExpirySweeper(ctx)

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("banquet-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
