package venue

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// BookSink receives best-of-book updates from a feed.
type BookSink interface {
	SetBook(instrumentID string, bid, ask *PriceLevel)
}

// bookMessage is the feed's wire format: one best-of-book snapshot per message.
type bookMessage struct {
	InstrumentID string `json:"instrument_id"`
	Bid          *level `json:"bid"`
	Ask          *level `json:"ask"`
	Timestamp    int64  `json:"ts"`
	Channel      string `json:"channel"`
}

type level struct {
	Price  float64 `json:"price"`
	Volume int     `json:"volume"`
}

// Feed streams best-of-book snapshots from a websocket endpoint into a
// BookSink, typically a Sim acting as the local market-data cache.
// Minimal skeleton: connect plus read loop; reconnection is the caller's job.
type Feed struct {
	Endpoint    string // e.g. wss://feed.example.net
	Dialer      *websocket.Dialer
	ReadTimeout time.Duration

	subscriptions []string
}

// NewFeed creates a feed client with default dialer settings.
func NewFeed(endpoint string) *Feed {
	return &Feed{
		Endpoint:    endpoint,
		Dialer:      websocket.DefaultDialer,
		ReadTimeout: 30 * time.Second,
	}
}

// Subscribe registers an instrument's book channel before Run.
func (f *Feed) Subscribe(instrumentID string) error {
	if instrumentID == "" {
		return fmt.Errorf("instrument id required")
	}
	f.subscriptions = append(f.subscriptions, strings.ToUpper(instrumentID)+"@book")
	return nil
}

// Run connects and pumps messages into the sink until the connection drops or
// stop is closed.
func (f *Feed) Run(sink BookSink, stop <-chan struct{}) error {
	if len(f.subscriptions) == 0 {
		return fmt.Errorf("no channels subscribed")
	}
	scheme, host := "wss", f.Endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		scheme, host = host[:i], host[i+3:]
	}
	u := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   "/stream",
	}
	q := u.Query()
	q.Set("channels", strings.Join(f.subscriptions, "/"))
	u.RawQuery = q.Encode()

	conn, _, err := f.Dialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-stop:
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		if f.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			return fmt.Errorf("feed read: %w", err)
		}
		var msg bookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Skip malformed frames; the next snapshot supersedes them.
			continue
		}
		if msg.InstrumentID == "" {
			continue
		}
		var bid, ask *PriceLevel
		if msg.Bid != nil {
			bid = &PriceLevel{Price: msg.Bid.Price, Volume: msg.Bid.Volume}
		}
		if msg.Ask != nil {
			ask = &PriceLevel{Price: msg.Ask.Price, Volume: msg.Ask.Volume}
		}
		sink.SetBook(msg.InstrumentID, bid, ask)
	}
}
