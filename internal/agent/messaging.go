package agent

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDecrypt indicates a message payload could not be decrypted. The
// receiving agent reports it and keeps running.
var ErrDecrypt = errors.New("message decryption failed")

const nonceLen = 12

// Message is a point-to-point payload between agents. Encrypted payloads
// carry the GCM nonce prepended to the ciphertext.
type Message struct {
	// ID is the unique message identifier.
	ID string `json:"id"`
	// From is the sending agent's ID.
	From string `json:"from"`
	// To is the target agent's ID.
	To string `json:"to"`
	// Payload is the serialized (optionally encrypted) content.
	Payload []byte `json:"payload"`
	// Encrypted marks whether Payload is ciphertext.
	Encrypted bool `json:"encrypted"`
	// SentAt is when the message was emitted.
	SentAt time.Time `json:"sent_at"`
}

// SetCommKey replaces the agent's symmetric communication key. The
// orchestrator provisions a shared key pair-wise at registration.
func (a *BaseAgent) SetCommKey(key []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commKey = append([]byte(nil), key...)
}

// SendMessage serializes the payload, optionally encrypts it with the
// agent's communication key, and emits it as a message event. The payload
// passes the compliance guard first; inter-agent traffic is a trust
// boundary like any other.
func (a *BaseAgent) SendMessage(to string, payload any, encrypt bool) (*Message, error) {
	if err := a.guard.CheckPayload(payload); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal message payload: %w", err)
	}

	if encrypt {
		data, err = seal(data, a.commKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt message: %w", err)
		}
	}

	msg := &Message{
		ID:        uuid.New().String(),
		From:      a.id,
		To:        to,
		Payload:   data,
		Encrypted: encrypt,
		SentAt:    time.Now(),
	}

	a.emit(Event{Type: EventMessageSent, AgentID: a.id, Message: msg, Timestamp: msg.SentAt})
	return msg, nil
}

// OpenMessage decrypts (if needed) and deserializes a received message
// into dst. Decryption failures return ErrDecrypt without affecting the
// agent's state.
func (a *BaseAgent) OpenMessage(msg *Message, dst any) error {
	data := msg.Payload
	if msg.Encrypted {
		plain, err := open(data, a.commKey)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		data = plain
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal message payload: %w", err)
	}
	return nil
}

// seal encrypts plaintext with AES-GCM, prepending the nonce.
func seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return append(nonce, gcm.Seal(nil, nonce, plaintext, nil)...), nil
}

// open decrypts a nonce-prefixed AES-GCM ciphertext.
func open(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) < nonceLen {
		return nil, errors.New("ciphertext too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	plain, err := gcm.Open(nil, ciphertext[:nonceLen], ciphertext[nonceLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
