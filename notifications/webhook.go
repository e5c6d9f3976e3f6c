// Package notifications delivers audit alerts to configured webhook
// endpoints.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"od-flow-audit/analysis"
)

// Notifier handles webhook notifications
type Notifier struct {
	urls   []string
	client *http.Client
}

// AlertPayload represents the JSON payload sent to webhooks
type AlertPayload struct {
	AlertType     string    `json:"alert_type"`
	DetectedAt    time.Time `json:"detected_at"`
	WindowStart   string    `json:"window_start"`
	WindowEnd     string    `json:"window_end"`
	Facet         string    `json:"facet,omitempty"`
	AbnormalShare float64   `json:"abnormal_share,omitempty"`
	MatchRate     float64   `json:"match_rate,omitempty"`
	Message       string    `json:"message"`
}

// NewNotifier creates a notifier for the given webhook URLs. An empty list
// disables delivery.
func NewNotifier(urls []string) *Notifier {
	return &Notifier{
		urls: urls,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyQualityIssues inspects the toll-square facets of a run and fires one
// alert per facet whose abnormal share exceeds the threshold
func (n *Notifier) NotifyQualityIssues(result *analysis.Result, windowStart, windowEnd string, threshold float64) {
	if len(n.urls) == 0 {
		return
	}

	for _, facet := range analysis.Facets {
		if !facet.IsTollSquare() {
			continue
		}
		fr, ok := result.Facets[facet]
		if !ok || fr.Summary == nil || fr.Summary.Quality == nil {
			continue
		}
		q := fr.Summary.Quality
		total := q.NormalRecords + q.AbnormalRecords
		if total == 0 {
			continue
		}
		abnormalShare := float64(q.AbnormalRecords) / float64(total)
		if abnormalShare <= threshold {
			continue
		}

		payload := AlertPayload{
			AlertType:     "quality_degradation",
			DetectedAt:    time.Now(),
			WindowStart:   windowStart,
			WindowEnd:     windowEnd,
			Facet:         string(facet),
			AbnormalShare: abnormalShare,
			MatchRate:     fr.Coverage.MatchRate,
			Message: fmt.Sprintf("%.1f%% of %s records outside the flow/OD consistency band",
				abnormalShare*100, facet),
		}
		n.send(payload)
	}
}

func (n *Notifier) send(payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal alert payload: %v", err)
		return
	}

	for _, url := range n.urls {
		go n.deliver(url, body)
	}
}

// deliver posts the payload with one retry on failure
func (n *Notifier) deliver(url string, body []byte) {
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				log.Printf("✅ Alert delivered to %s", url)
				return
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		log.Printf("⚠️  Webhook delivery to %s failed (attempt %d): %v", url, attempt+1, err)
		time.Sleep(2 * time.Second)
	}
}
