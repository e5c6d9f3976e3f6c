package collector

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"od-flow-audit/analysis"
	"od-flow-audit/database"
	"od-flow-audit/realtime"
)

const (
	pingInterval      = 25 * time.Second
	healthInterval    = 60 * time.Second
	staleAfter        = 5 * time.Minute
	reconnectBackoff  = 5 * time.Second
	insertBatchSize   = 500
	insertMaxInterval = 10 * time.Second
)

// Collector runs the counter-feed ingestion loop: it reads batches from the
// feed, buffers them, and flushes to the warehouse on size or time.
type Collector struct {
	feedURL   string
	authToken string
	flows     *database.FlowRepository
	broker    *realtime.Broker

	// mu guards client and lastMsgTime, shared between the read loop and the
	// health monitor
	mu          sync.Mutex
	client      *Client
	lastMsgTime time.Time

	buffer []analysis.FlowRecord
}

// New creates a collector. The broker is optional; when present every flushed
// batch is announced to SSE subscribers.
func New(feedURL, authToken string, flows *database.FlowRepository, broker *realtime.Broker) *Collector {
	return &Collector{
		feedURL:     feedURL,
		authToken:   authToken,
		flows:       flows,
		broker:      broker,
		lastMsgTime: time.Now(),
	}
}

func (c *Collector) connect() error {
	client := NewClient(c.feedURL, c.authToken)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("counter feed connection failed: %w", err)
	}
	if err := client.Subscribe(nil); err != nil {
		return err
	}
	client.StartPing(pingInterval)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

func (c *Collector) currentClient() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *Collector) touch() {
	c.mu.Lock()
	c.lastMsgTime = time.Now()
	c.mu.Unlock()
}

func (c *Collector) lastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMsgTime
}

// Run ingests until the context is canceled. Read errors trigger reconnects
// with a fixed backoff; the buffer survives reconnects.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.connect(); err != nil {
		return err
	}
	defer c.currentClient().Close()

	go c.runHealthMonitor(ctx)

	flushTicker := time.NewTicker(insertMaxInterval)
	defer flushTicker.Stop()

	batches := make(chan []analysis.FlowRecord, 100)
	go c.readLoop(ctx, batches)

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Collector stopping, flushing buffer...")
			return c.flush(context.Background())

		case records := <-batches:
			c.buffer = append(c.buffer, records...)
			if len(c.buffer) >= insertBatchSize {
				if err := c.flush(ctx); err != nil {
					log.Printf("❌ Flush failed: %v", err)
				}
			}

		case <-flushTicker.C:
			if err := c.flush(ctx); err != nil {
				log.Printf("❌ Flush failed: %v", err)
			}
		}
	}
}

func (c *Collector) readLoop(ctx context.Context, batches chan<- []analysis.FlowRecord) {
	for {
		if ctx.Err() != nil {
			return
		}
		records, err := c.currentClient().ReadBatch()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("⚠️  Feed read failed: %v, reconnecting in %s", err, reconnectBackoff)
			time.Sleep(reconnectBackoff)
			if err := c.reconnect(); err != nil {
				log.Printf("❌ Reconnection failed: %v", err)
			}
			continue
		}
		c.touch()
		if len(records) > 0 {
			batches <- records
		}
	}
}

func (c *Collector) flush(ctx context.Context) error {
	if len(c.buffer) == 0 {
		return nil
	}
	if err := c.flows.InsertFlows(ctx, c.buffer); err != nil {
		return err
	}
	log.Printf("📊 Flushed %d counter rows", len(c.buffer))
	if c.broker != nil {
		c.broker.Broadcast(realtime.EventCounterBatch, map[string]interface{}{
			"rows":       len(c.buffer),
			"flushed_at": time.Now(),
		})
	}
	c.buffer = c.buffer[:0]
	return nil
}

func (c *Collector) reconnect() error {
	_ = c.currentClient().Close()
	if err := c.connect(); err != nil {
		return err
	}
	log.Println("✅ Reconnection successful")
	return nil
}

func (c *Collector) runHealthMonitor(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	log.Println("💓 Counter feed health monitoring started")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Counter feed health monitoring stopped")
			return
		case <-ticker.C:
			idle := time.Since(c.lastSeen())
			if idle > staleAfter {
				log.Printf("⚠️  No feed message for %v, reconnecting...", idle.Round(time.Second))
				if err := c.reconnect(); err != nil {
					log.Printf("❌ Feed reconnection failed: %v", err)
				} else {
					c.touch()
				}
			} else {
				log.Printf("💓 Counter feed healthy, last message %v ago", idle.Round(time.Second))
			}
		}
	}
}
