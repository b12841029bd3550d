package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"socialfeed/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const ssePingInterval = 15 * time.Second

// Broadcaster fans new posts out to connected event streams
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan models.PostWithAuthor
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan models.PostWithAuthor),
	}
}

// BroadcastNewPost never blocks; slow clients miss the event
func (b *Broadcaster) BroadcastNewPost(post models.PostWithAuthor) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- post:
		default:
			broadcastDrops.Inc()
			log.Warnf("Client channel full, skipping post for client: %v", id)
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan models.PostWithAuthor) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	sseClients.Set(float64(len(b.clients)))
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}
	sseClients.Set(float64(len(b.clients)))

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

// Count returns the number of connected clients
func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
	sseClients.Set(0)
}

// streamEvents serves new posts as server-sent events
func (b *Broadcaster) streamEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	key := uuid.New().String()
	events := make(chan models.PostWithAuthor, 10)
	b.AddClient(key, events)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ping := time.NewTicker(ssePingInterval)
		defer ping.Stop()
		defer b.RemoveClient(key)

		fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
		if err := w.Flush(); err != nil {
			log.Errorf("Failed to send init event: %v", err)
			return
		}

		for {
			select {
			case <-ping.C:
				if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush ping for client %s: %v", key, err)
					return
				}

			case post, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(post)
				if err != nil {
					log.Errorf("Error marshalling post for client %s: %v", key, err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: new-post\ndata: %s\n\n", data); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					log.Warnf("Failed to flush new-post event for client %s: %v", key, err)
					return
				}
			}
		}
	}))

	return nil
}
