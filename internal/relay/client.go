package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/aiwot/reputation-engine/internal/wotevent"
)

// PublishResult is the per-relay outcome of a publish fan-out.
type PublishResult struct {
	Relay    string
	Accepted bool
	Reason   string
}

// Client is the per-relay transport the Aggregator depends on. The
// production implementation is WebsocketClient; tests substitute a fake so
// fan-out/merge logic is exercised without a network.
type Client interface {
	// Query opens a subscription against relayURL, accumulates events until
	// an end-of-stored-events marker or ctx's deadline, then closes it.
	Query(ctx context.Context, relayURL string, filter Filter) ([]wotevent.Event, error)
	// Publish sends ev to relayURL and resolves on the first OK reply for
	// its id, or ctx's deadline.
	Publish(ctx context.Context, relayURL string, ev wotevent.Event) (accepted bool, reason string, err error)
}

// WebsocketClient implements Client over a JSON-encoded frame protocol:
// ("REQ"/"EVENT"/"OK"/"EOSE"/"CLOSE").
type WebsocketClient struct {
	dialer *websocket.Dialer
}

// NewWebsocketClient builds a WebsocketClient with the default gorilla dialer.
func NewWebsocketClient() *WebsocketClient {
	return &WebsocketClient{dialer: websocket.DefaultDialer}
}

// frame is the generic ["TYPE", ...fields] envelope used on the wire.
type frame []json.RawMessage

func encodeRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// wireFilter mirrors Filter's JSON shape on the wire.
type wireFilter struct {
	Kinds   []int    `json:"kinds,omitempty"`
	HashL   string   `json:"#L,omitempty"`
	Hashl   string   `json:"#l,omitempty"`
	HashP   string   `json:"#p,omitempty"`
	Authors []string `json:"authors,omitempty"`
	IDs     []string `json:"ids,omitempty"`
	HashE   []string `json:"#e,omitempty"`
	Since   int64    `json:"since,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

func toWireFilter(f Filter) wireFilter {
	return wireFilter{
		Kinds:   f.Kinds,
		HashL:   f.Namespace,
		Hashl:   f.Type,
		HashP:   f.Target,
		Authors: f.Authors,
		IDs:     f.IDs,
		HashE:   f.References,
		Since:   f.Since,
		Limit:   f.Limit,
	}
}

type wireEvent struct {
	ID        string          `json:"id"`
	Kind      int             `json:"kind"`
	Author    string          `json:"pubkey"`
	CreatedAt int64           `json:"created_at"`
	Content   string          `json:"content"`
	Tags      [][]string      `json:"tags"`
	Sig       string          `json:"sig"`
	_         json.RawMessage `json:"-"`
}

func fromWireEvent(w wireEvent) wotevent.Event {
	tags := make([]wotevent.Tag, len(w.Tags))
	for i, t := range w.Tags {
		tags[i] = wotevent.Tag(t)
	}
	return wotevent.Event{
		ID:        w.ID,
		Kind:      w.Kind,
		Author:    w.Author,
		CreatedAt: w.CreatedAt,
		Content:   w.Content,
		Tags:      tags,
		Sig:       w.Sig,
	}
}

// Query implements Client over a websocket connection. ctx's deadline bounds
// the whole subscription lifetime.
func (c *WebsocketClient) Query(ctx context.Context, relayURL string, filter Filter) ([]wotevent.Event, error) {
	conn, _, err := c.dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", relayURL, err)
	}
	defer conn.Close()

	subID := fmt.Sprintf("sub-%p", filter.IDs)
	req := frame{encodeRaw("REQ"), encodeRaw(subID), encodeRaw(toWireFilter(filter))}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", relayURL, err)
	}
	defer conn.WriteJSON(frame{encodeRaw("CLOSE"), encodeRaw(subID)})

	var events []wotevent.Event
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = conn.Close()
		close(done)
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return events, nil // deadline or close: return whatever survived
		}
		if len(f) == 0 {
			continue
		}
		var kind string
		_ = json.Unmarshal(f[0], &kind)
		switch kind {
		case "EVENT":
			if len(f) < 3 {
				continue
			}
			var ev wireEvent
			if err := json.Unmarshal(f[2], &ev); err != nil {
				continue // ignore malformed frames rather than fail the whole query
			}
			events = append(events, fromWireEvent(ev))
		case "EOSE":
			return events, nil
		default:
			// ignore unknown frames rather than drop the connection.
		}
	}
}

// Publish implements Client: send the event, resolve on the first OK reply
// for its id or ctx's deadline.
func (c *WebsocketClient) Publish(ctx context.Context, relayURL string, ev wotevent.Event) (bool, string, error) {
	conn, _, err := c.dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return false, "", fmt.Errorf("dial %s: %w", relayURL, err)
	}
	defer conn.Close()

	tags := make([][]string, len(ev.Tags))
	for i, t := range ev.Tags {
		tags[i] = []string(t)
	}
	wire := wireEvent{ID: ev.ID, Kind: ev.Kind, Author: ev.Author, CreatedAt: ev.CreatedAt, Content: ev.Content, Tags: tags, Sig: ev.Sig}
	req := frame{encodeRaw("EVENT"), encodeRaw(wire)}
	if err := conn.WriteJSON(req); err != nil {
		return false, "", fmt.Errorf("publish %s: %w", relayURL, err)
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return false, "timeout", nil
		}
		if len(f) < 3 {
			continue
		}
		var kind, id string
		_ = json.Unmarshal(f[0], &kind)
		_ = json.Unmarshal(f[1], &id)
		if kind != "OK" || id != ev.ID {
			continue
		}
		var accepted bool
		var reason string
		_ = json.Unmarshal(f[2], &accepted)
		if len(f) >= 4 {
			_ = json.Unmarshal(f[3], &reason)
		}
		return accepted, reason, nil
	}
}
