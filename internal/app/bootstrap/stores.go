package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/chat"
	"github.com/wolfman30/advisor-match/internal/events"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Stores groups the persistence backends picked for this process.
type Stores struct {
	Profiles     profiles.Repository
	Slots        availability.Repository
	Appointments appointments.Store
	Categories   appointments.CategoryStore
	Leads        leads.Repository
	Chats        chat.Store
	Outbox       events.Outbox
	Processed    events.Processed
	Durable      bool
}

// BuildStores picks Postgres-backed stores when pool is set and memory stores
// otherwise. Appointment changes write their outbox events through the
// appointment store. Chats and categories live in Redis when a client is available.
func BuildStores(pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	var s Stores
	if pool != nil {
		s = Stores{
			Profiles:     profiles.NewPostgresRepository(pool),
			Slots:        availability.NewPostgresRepository(pool),
			Appointments: appointments.NewPostgresStore(pool),
			Leads:        leads.NewPostgresRepository(pool),
			Outbox:       events.NewOutboxStore(pool),
			Processed:    events.NewProcessedStore(pool),
			Durable:      true,
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		outbox := events.NewMemoryOutbox()
		s = Stores{
			Profiles:     profiles.NewInMemoryRepository(),
			Slots:        availability.NewInMemoryRepository(),
			Appointments: appointments.NewMemoryStore().WithOutbox(outbox),
			Leads:        leads.NewInMemoryRepository(),
			Outbox:       outbox,
			Processed:    events.NewMemoryProcessed(),
		}
	}
	if redisClient != nil {
		s.Chats = chat.NewRedisStore(redisClient)
		s.Categories = appointments.NewRedisCategoryStore(redisClient)
	} else {
		s.Chats = chat.NewMemoryStore()
		s.Categories = appointments.NewMemoryCategoryStore()
	}
	return s
}
