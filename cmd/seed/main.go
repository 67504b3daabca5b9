package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"schoolbooking/internal/config"
	"schoolbooking/internal/database"
	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/reservations"
	"schoolbooking/internal/modules/resources"
	"schoolbooking/internal/modules/users"
	"schoolbooking/internal/pkg/logger"
	"schoolbooking/internal/repository"
	"schoolbooking/internal/server"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin12345"
	userEmail     = "professor@example.com"
	userPassword  = "professor123"
)

var seedResources = []resources.ResourceRequest{
	{
		Name: "Laboratório de Ciências", Type: "Laboratório", Location: "Bloco B, sala 12", Capacity: 30,
		Equipment: resources.StringList{"Microscópios", "Bancadas", "Capela"},
		Tags:      resources.StringList{"Laboratório", "Estudo"},
	},
	{
		Name: "Auditório Principal", Type: "Auditório", Location: "Bloco A, térreo", Capacity: 200,
		Equipment: resources.StringList{"Projetor", "Som", "Microfones"},
		Tags:      resources.StringList{"Audiovisual", "Reunião"},
	},
	{
		Name: "Sala de Informática", Type: "Sala", Location: "Bloco C, sala 3", Capacity: 35,
		Equipment: resources.StringList{"Computadores", "Lousa digital"},
		Tags:      resources.StringList{"Sala de Aula", "Estudo"},
	},
	{
		Name: "Kit de Robótica", Type: "Equipamento", Location: "Almoxarifado", Capacity: 10,
		Availability: "maintenance",
		Tags:         resources.StringList{"Laboratório"},
	},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	app := server.New(server.Options{Config: cfg, DB: db, Logger: zerolog.Nop()})
	defer app.Hub.Close()
	ctx := context.Background()

	admin, err := app.Users.CreateAdmin(ctx, "Administrador", adminEmail, adminPassword)
	if errors.Is(err, users.ErrEmailExists) {
		log.Info().Str("email", adminEmail).Msg("already seeded, nothing to do")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("create admin")
	}
	professor, err := app.Users.Register(ctx, "Professora Ana", userEmail, userPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("create user")
	}
	adminActor := domain.Actor{UserID: admin.ID, Role: admin.Role}

	ids := make([]int64, 0, len(seedResources))
	for _, req := range seedResources {
		r, err := app.Resources.Create(ctx, adminActor, req)
		if err != nil {
			log.Fatal().Err(err).Str("resource", req.Name).Msg("create resource")
		}
		ids = append(ids, r.ID)
	}

	day := nextSchoolDay(time.Now().In(cfg.Location()))
	bookings := []reservations.CreateReservationRequest{
		{ResourceID: ids[0], UserID: professor.ID, Date: day, StartTime: "07:30", EndTime: "09:10", Purpose: "Aula prática de química"},
		{ResourceID: ids[1], UserID: admin.ID, Date: day, StartTime: "13:20", EndTime: "15:00", Purpose: "Reunião de pais"},
		{ResourceID: ids[2], UserID: professor.ID, Date: day, StartTime: "09:30", EndTime: "10:20"},
	}
	for _, b := range bookings {
		if _, err := app.Reservations.Create(ctx, adminActor, b); err != nil {
			log.Fatal().Err(err).Msg("create reservation")
		}
	}

	// A pending request as the old dashboard left them; the API never creates these.
	start, _ := time.ParseInLocation("2006-01-02 15:04", day+" 14:10", cfg.Location())
	pending := &domain.Reservation{
		ResourceID: ids[2],
		UserID:     professor.ID,
		StartTime:  start,
		EndTime:    start.Add(50 * time.Minute),
		Purpose:    "Aguardando aprovação",
		Status:     domain.ReservationPending,
	}
	if err := repository.NewReservationRepository(db).Create(ctx, pending); err != nil {
		log.Fatal().Err(err).Msg("create pending reservation")
	}

	log.Info().
		Int("resources", len(ids)).
		Int("reservations", len(bookings)+1).
		Str("admin", adminEmail).
		Str("user", userEmail).
		Msg("seed completed")
}

func nextSchoolDay(now time.Time) string {
	d := now.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}
