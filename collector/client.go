// Package collector ingests the live roadside counter feed and lands it in
// the same warehouse tables the batch extraction reads, so a window can be
// analyzed as soon as it closes.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"od-flow-audit/analysis"
)

// subscription wildcard covering every counter point
const allPointsWildcard = "*"

// counterMessage is one feed frame: a batch of per-point counter readings
type counterMessage struct {
	Type     string           `json:"type"`
	Readings []counterReading `json:"readings"`
}

type counterReading struct {
	PointCode string    `json:"point_code"`
	Role      string    `json:"role"` // gantry | toll_entry | toll_exit
	StatTime  time.Time `json:"stat_time"`
	Total     int64     `json:"total"`
	KFlow     int64     `json:"k_flow"`
	HFlow     int64     `json:"h_flow"`
	TFlow     int64     `json:"t_flow"`
}

// Client represents a WebSocket client for the counter feed
type Client struct {
	url        string
	conn       *websocket.Conn
	header     http.Header
	writeMu    sync.Mutex
	pingCancel context.CancelFunc
}

// NewClient creates a new counter-feed client
func NewClient(url string, authToken string) *Client {
	header := make(http.Header)
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}

	return &Client{
		url:    url,
		header: header,
	}
}

// Connect establishes WebSocket connection
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	c.conn = conn
	log.Printf("✅ Connected to %s", c.url)
	return nil
}

// Subscribe requests all counter streams for the given points. An empty
// point list subscribes to everything.
func (c *Client) Subscribe(points []string) error {
	if len(points) == 0 {
		points = []string{allPointsWildcard}
	}

	sub := map[string]interface{}{
		"type":   "subscribe",
		"points": points,
		"roles":  []string{string(analysis.RoleGantry), string(analysis.RoleTollEntry), string(analysis.RoleTollExit)},
	}
	if err := c.writeJSON(sub); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	log.Printf("📡 Subscribed to %d counter point(s)", len(points))
	return nil
}

// StartPing starts periodic ping to keep connection alive
func (c *Client) StartPing(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	c.pingCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ping := map[string]interface{}{
					"type":      "ping",
					"timestamp": time.Now().Unix(),
				}
				if err := c.writeJSON(ping); err != nil {
					log.Println("Failed to send ping:", err)
					return
				}
			}
		}
	}()
}

func (c *Client) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadBatch reads and decodes one counter batch. Non-data frames (pongs,
// acks) yield an empty slice.
func (c *Client) ReadBatch() ([]analysis.FlowRecord, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var msg counterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Type != "counter_batch" {
		return nil, nil
	}

	records := make([]analysis.FlowRecord, 0, len(msg.Readings))
	for _, rd := range msg.Readings {
		records = append(records, analysis.FlowRecord{
			PointCode: rd.PointCode,
			Role:      analysis.FlowRole(rd.Role),
			Timestamp: rd.StatTime,
			Total:     rd.Total,
			Classes: analysis.ClassTotals{
				Passenger: rd.KFlow,
				Truck:     rd.HFlow,
				Trailer:   rd.TFlow,
			},
		})
	}
	return records, nil
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	if c.pingCancel != nil {
		c.pingCancel()
	}

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
