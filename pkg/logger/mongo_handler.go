package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoBuffer   = 4096
	mongoBatch    = 50
	mongoInterval = 2 * time.Second
)

// Entry is one log record as stored in MongoDB. request_id and product_id
// are lifted out of the attributes so a product's history can be queried.
type Entry struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	ProductID uint64    `bson:"product_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// MongoHandler is a slog.Handler that writes Info and above into a MongoDB
// collection in batches. Entries are dropped when the buffer is full.
type MongoHandler struct {
	col     *mongo.Collection
	client  *mongo.Client
	entries chan Entry
	stop    chan struct{}
	stopped chan struct{}
	attrs   []slog.Attr
	group   string
}

// NewMongoHandler connects to uri and writes into db.collection.
func NewMongoHandler(uri, db, collection string) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(4)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("logger: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger: mongo ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "time", Value: -1}}},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: mongo indexes: %v\n", err)
	}

	h := &MongoHandler{
		col:     col,
		client:  client,
		entries: make(chan Entry, mongoBuffer),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go h.run()
	return h, nil
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Time: r.Time, Level: r.Level.String(), Msg: r.Message}
	for _, a := range h.attrs {
		h.collect(&e, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.collect(&e, a)
		return true
	})

	select {
	case h.entries <- e:
	default:
	}
	return nil
}

func (h *MongoHandler) collect(e *Entry, a slog.Attr) {
	v := a.Value.Resolve()
	switch a.Key {
	case "request_id":
		e.RequestID = v.String()
		return
	case "product_id":
		switch v.Kind() {
		case slog.KindUint64:
			e.ProductID = v.Uint64()
			return
		case slog.KindInt64:
			if n := v.Int64(); n >= 0 {
				e.ProductID = uint64(n)
				return
			}
		}
	}

	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	if e.Attrs == nil {
		e.Attrs = bson.M{}
	}
	if err, ok := v.Any().(error); ok {
		e.Attrs[key] = err.Error()
		return
	}
	e.Attrs[key] = v.Any()
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = strings.Trim(h.group+"."+name, ".")
	return &clone
}

func (h *MongoHandler) run() {
	defer close(h.stopped)
	ticker := time.NewTicker(mongoInterval)
	defer ticker.Stop()

	var batch []interface{}
	write := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := h.col.InsertMany(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "logger: mongo insert of %d entries: %v\n", len(batch), err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-h.entries:
			if batch = append(batch, e); len(batch) >= mongoBatch {
				write()
			}
		case <-ticker.C:
			write()
		case <-h.stop:
			for len(h.entries) > 0 {
				batch = append(batch, <-h.entries)
			}
			write()
			return
		}
	}
}

// Close writes what is buffered and disconnects. Only the first call has
// an effect.
func (h *MongoHandler) Close() {
	select {
	case <-h.stop:
		return
	default:
		close(h.stop)
	}
	<-h.stopped
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.client.Disconnect(ctx)
}

// MultiHandler fans each record out to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}
