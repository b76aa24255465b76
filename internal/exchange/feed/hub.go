// Package feed pushes exchange events to the websocket clients of the
// accounts involved in each proposal.
package feed

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
)

const eventBuffer = 256

// Hub owns the subscriber set. Only the Run goroutine touches it, so client
// send channels are never written after they are closed.
type Hub struct {
	clients     map[string]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	events      chan domain.Event
	done        chan struct{}
	clientCount atomic.Int64
	log         *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan domain.Event, eventBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Publish queues an event for delivery. It drops the event instead of
// blocking when the hub is saturated or stopped.
func (h *Hub) Publish(event domain.Event) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.events <- event:
	default:
		metrics.ExchangeFeedEventsDropped.Inc()
		h.log.WithFields(context.Background(), logger.Fields{
			"exchange_id": event.Exchange.ID,
			"event":       string(event.Type),
			"action":      "feed_event_dropped",
		}).Warn("feed event dropped: hub saturated")
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int64 {
	return h.clientCount.Load()
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			set, ok := h.clients[client.accountID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.accountID] = set
			}
			set[client] = struct{}{}
			total := h.clientCount.Add(1)
			metrics.ExchangeFeedConnectionsActive.Inc()
			h.log.WithFields(ctx, logger.Fields{
				"account_id": client.accountID,
				"total":      total,
				"action":     "feed_register",
			}).Info("feed client registered")

		case client := <-h.unregister:
			h.remove(client)

		case event := <-h.events:
			h.dispatch(ctx, event)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithFields(ctx, logger.Fields{
			"exchange_id": event.Exchange.ID,
			"action":      "feed_marshal_failed",
		}).Errorf("feed event marshal failed: %v", err)
		return
	}

	recipients := []string{event.Exchange.OwnerID}
	if event.Exchange.RequesterID != event.Exchange.OwnerID {
		recipients = append(recipients, event.Exchange.RequesterID)
	}

	for _, accountID := range recipients {
		for client := range h.clients[accountID] {
			select {
			case client.send <- payload:
			default:
				metrics.ExchangeFeedEventsDropped.Inc()
				h.log.WithFields(ctx, logger.Fields{
					"account_id": accountID,
					"action":     "feed_client_slow",
				}).Warn("feed client too slow, disconnecting")
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.accountID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.accountID)
	}
	close(client.send)
	h.clientCount.Add(-1)
	metrics.ExchangeFeedConnectionsActive.Dec()
}

func (h *Hub) shutdown() {
	count := 0
	for _, set := range h.clients {
		for client := range set {
			h.remove(client)
			count++
		}
	}

	h.log.WithFields(context.Background(), logger.Fields{
		"clients": count,
		"action":  "feed_hub_shutdown",
	}).Info("feed hub shutdown completed")
}

// Done is closed once Run has returned and every client has been closed.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
