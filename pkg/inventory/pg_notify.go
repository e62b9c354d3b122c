package inventory

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

// ChangeChannel is the Postgres notification channel carrying user ids whose
// collection changed.
const ChangeChannel = "food_items_changed"

// PgBroadcaster announces changes with pg_notify so every instance listening
// on the channel refreshes its subscribers.
type PgBroadcaster struct {
	db      *gorm.DB
	channel string
}

func NewPgBroadcaster(db *gorm.DB) *PgBroadcaster {
	return &PgBroadcaster{db: db, channel: ChangeChannel}
}

func (b *PgBroadcaster) Broadcast(ctx context.Context, userID string) error {
	return b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, userID).Error
}

// PgListener relays notifications from the channel into a local Broadcaster,
// usually the Hub. It reconnects until its context is cancelled.
type PgListener struct {
	dsn      string
	channel  string
	sink     Broadcaster
	minDelay time.Duration
	maxDelay time.Duration
}

func NewPgListener(dsn string, sink Broadcaster) *PgListener {
	return &PgListener{
		dsn:      dsn,
		channel:  ChangeChannel,
		sink:     sink,
		minDelay: time.Second,
		maxDelay: 30 * time.Second,
	}
}

func (l *PgListener) Run(ctx context.Context) error {
	delay := l.minDelay
	for {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			log.Info("pg listener stopping")
			return nil
		}
		if time.Since(started) > l.maxDelay {
			delay = l.minDelay
		}
		log.Errorf("pg listener: %v; reconnecting in %s", err, delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > l.maxDelay {
			delay = l.maxDelay
		}
	}
}

func (l *PgListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	log.Infof("pg listener subscribed to %s", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			continue
		}
		if err := l.sink.Broadcast(ctx, n.Payload); err != nil {
			log.Warnf("pg listener: relay for user %s failed: %v", n.Payload, err)
		}
	}
}
