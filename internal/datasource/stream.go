package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/models"
)

// LapStreamClient maintains a WebSocket subscription to the timing
// provider's live lap stream. Incoming laps are handed to registered
// handlers; the typical consumer invalidates the prediction cache for the
// affected race so the next bundle sees the new lap.
type LapStreamClient struct {
	streamURL       string
	apiKey          string
	conn            *websocket.Conn
	mu              sync.RWMutex
	isConnected     bool
	handlers        []LapHandler
	lastMessageTime time.Time
	logger          *logrus.Logger
}

// wireStreamMessage is one frame of the live feed.
type wireStreamMessage struct {
	Op        string    `json:"op"`
	RaceID    uuid.UUID `json:"race_id,omitempty"`
	Lap       *wireLap  `json:"lap,omitempty"`
	Heartbeat bool      `json:"heartbeat,omitempty"`
}

// NewLapStreamClient creates a new lap stream client
func NewLapStreamClient(streamURL, apiKey string, logger *logrus.Logger) *LapStreamClient {
	return &LapStreamClient{
		streamURL: streamURL,
		apiKey:    apiKey,
		handlers:  make([]LapHandler, 0),
		logger:    logger,
	}
}

// Connect establishes the WebSocket connection and starts the read loop.
func (s *LapStreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to lap stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	s.logger.WithField("url", s.streamURL).Info("Connected to lap stream")

	go s.readMessages()
	return nil
}

// Subscribe registers interest in one race's live laps.
func (s *LapStreamClient) Subscribe(raceID uuid.UUID) error {
	return s.sendMessage(map[string]interface{}{
		"op":      "subscribe",
		"api_key": s.apiKey,
		"race_id": raceID.String(),
	})
}

// AddHandler registers a lap handler
func (s *LapStreamClient) AddHandler(handler LapHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// readMessages reads frames until the connection drops.
func (s *LapStreamClient) readMessages() {
	defer s.Close()

	for {
		var raw json.RawMessage
		if err := s.conn.ReadJSON(&raw); err != nil {
			s.logger.WithError(err).Warn("Lap stream read failed")
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		var msg wireStreamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.WithError(err).Warn("Dropping malformed stream frame")
			continue
		}
		if msg.Heartbeat || msg.Lap == nil {
			continue
		}

		lap, err := s.convertLap(*msg.Lap)
		if err != nil {
			s.logger.WithError(err).Warn("Dropping stream lap with bad timing data")
			continue
		}

		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(msg.RaceID, lap); err != nil {
				s.logger.WithError(err).Warn("Lap handler failed")
			}
		}
	}
}

func (s *LapStreamClient) convertLap(w wireLap) (models.LapRecord, error) {
	seconds, err := ParseLapTime(w.LapTime)
	if err != nil {
		return models.LapRecord{}, err
	}
	return models.LapRecord{
		RiderID:       w.RiderID,
		SessionID:     w.SessionID,
		LapNumber:     w.LapNumber,
		RawLapTime:    seconds,
		FuelRemaining: w.FuelRemaining,
		TrackTemp:     w.TrackTemp,
		CompoundID:    w.CompoundID,
	}, nil
}

// sendMessage sends a JSON message over the stream
func (s *LapStreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isConnected || s.conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.conn.WriteJSON(msg)
}

// IsConnected returns whether the stream is connected
func (s *LapStreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received frame.
func (s *LapStreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *LapStreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	return s.conn.Close()
}
