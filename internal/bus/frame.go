// Package bus moves profile change notifications out and source events
// in. Two transports share one message shape: a persistent framed
// stream connection and a Kafka topic.
package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// SourceName identifies this service on every outbound message.
const SourceName = "IDENTITY_DNA_ENGINE"

// maxFrameSize bounds a single message on the wire.
const maxFrameSize = 1 << 20

// Outbound and control message types. Inbound event messages use the
// event type names directly.
const (
	TypeProfileUpdate = "PROFILE_UPDATE"
	TypeTierChanged   = "TIER_CHANGED"
	TypeTrustUpdate   = "TRUST_UPDATE"
	TypeDNASync       = "DNA_SYNC"
	TypePing          = "PING"
	TypePong          = "PONG"
	TypeAck           = "ACK"
)

// Message is the wire envelope. One JSON object per line.
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"userId,omitempty"`
	Broadcast     bool            `json:"broadcast,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Event decodes the message as an inbound source event. ok is false
// when the type is not a known event type.
func (m Message) Event() (domain.Event, bool) {
	t := domain.EventType(m.Type)
	if !t.Known() {
		return domain.Event{}, false
	}
	var payload domain.EventPayload
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return domain.Event{}, false
		}
	}
	return domain.Event{
		ID:        m.ID,
		Type:      t,
		UserID:    id.UserID(m.UserID),
		Source:    id.SourceID(m.Source),
		Payload:   payload,
		Timestamp: m.Timestamp,
	}, true
}

// Encoder writes newline-delimited messages. Safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) Encode(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode bus message: %w", err)
	}
	if len(data) >= maxFrameSize {
		return fmt.Errorf("bus message exceeds frame size: %d bytes", len(data))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write bus frame: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write bus frame delimiter: %w", err)
	}
	return e.w.Flush()
}

// Decoder reads newline-delimited messages.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64<<10)}
}

// Decode returns the next message. io.EOF propagates untouched so
// callers can tell a closed peer from a bad frame.
func (d *Decoder) Decode() (Message, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return Message{}, io.EOF
		}
		if err != io.EOF {
			return Message{}, fmt.Errorf("read bus frame: %w", err)
		}
	}
	if len(line) >= maxFrameSize {
		return Message{}, fmt.Errorf("bus frame exceeds size limit: %d bytes", len(line))
	}

	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return Message{}, fmt.Errorf("decode bus message: %w", err)
	}
	return m, nil
}
