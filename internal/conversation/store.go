package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is a snapshot of one chat history. The first message is
// always the system instruction.
type Conversation struct {
	ID        string
	Messages  []llm.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscriber receives store mutations, e.g. to mirror them into durable
// storage. Callbacks must not block.
type Subscriber interface {
	MessageAppended(conversationID string, message llm.Message)
	ConversationCleared(conversationID string)
}

// Store owns per-conversation message history in memory. Data access is
// guarded by a single RWMutex; orchestrator runs additionally serialize
// per conversation through Acquire/Release so two concurrent runs on the
// same id cannot interleave their appends. The second caller waits, it
// is not rejected.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*record

	runLocks sync.Map // conversation id -> *sync.Mutex

	subMu       sync.RWMutex
	subscribers []Subscriber
}

type record struct {
	messages  []llm.Message
	createdAt time.Time
	updatedAt time.Time
}

func NewStore() *Store {
	return &Store{conversations: make(map[string]*record)}
}

func (s *Store) Subscribe(sub Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

func (s *Store) notifyAppend(conversationID string, message llm.Message) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, sub := range s.subscribers {
		sub.MessageAppended(conversationID, message)
	}
}

func (s *Store) notifyClear(conversationID string) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, sub := range s.subscribers {
		sub.ConversationCleared(conversationID)
	}
}

// Acquire takes the per-conversation run lock. Every orchestrator run
// must hold it for the duration of the run.
func (s *Store) Acquire(conversationID string) {
	lock, _ := s.runLocks.LoadOrStore(conversationID, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
}

func (s *Store) Release(conversationID string) {
	lock, ok := s.runLocks.Load(conversationID)
	if !ok {
		return
	}
	lock.(*sync.Mutex).Unlock()
}

// GetOrCreate returns the conversation, creating it with a single system
// message when absent. An existing conversation is returned unchanged,
// so the first caller's system prompt wins.
func (s *Store) GetOrCreate(conversationID, systemPrompt string) Conversation {
	s.mu.Lock()
	rec, ok := s.conversations[conversationID]
	if !ok {
		now := time.Now()
		rec = &record{
			messages:  []llm.Message{{Role: "system", Content: systemPrompt}},
			createdAt: now,
			updatedAt: now,
		}
		s.conversations[conversationID] = rec
		s.mu.Unlock()
		s.notifyAppend(conversationID, rec.messages[0])
		return snapshot(conversationID, rec)
	}
	defer s.mu.Unlock()
	return snapshot(conversationID, rec)
}

// Restore seeds a conversation wholesale, replacing any existing record.
// Subscribers are not notified: the messages come from durable storage
// already, so mirroring them back would duplicate them.
func (s *Store) Restore(conversationID string, messages []llm.Message) {
	if len(messages) == 0 {
		return
	}
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = &record{
		messages:  copied,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Store) Append(conversationID string, message llm.Message) error {
	s.mu.Lock()
	rec, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	rec.messages = append(rec.messages, message)
	rec.updatedAt = time.Now()
	s.mu.Unlock()

	s.notifyAppend(conversationID, message)
	return nil
}

// Trim bounds the history. All system messages survive unconditionally,
// plus the most recent maxMessages entries by position. The result may
// exceed maxMessages by the number of system messages; that slack is the
// accepted policy. maxMessages <= 0 keeps system messages only.
func (s *Store) Trim(conversationID string, maxMessages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if maxMessages > 0 && len(rec.messages) <= maxMessages {
		return nil
	}

	cutoff := len(rec.messages) - maxMessages
	if maxMessages <= 0 {
		cutoff = len(rec.messages)
	}
	trimmed := make([]llm.Message, 0, len(rec.messages))
	for idx, message := range rec.messages {
		if message.Role == "system" || idx >= cutoff {
			trimmed = append(trimmed, message)
		}
	}
	rec.messages = trimmed
	rec.updatedAt = time.Now()
	return nil
}

func (s *Store) Clear(conversationID string) error {
	s.mu.Lock()
	_, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	delete(s.conversations, conversationID)
	s.mu.Unlock()

	s.notifyClear(conversationID)
	return nil
}

// History returns a read-only copy of the message sequence.
func (s *Store) History(conversationID string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	messages := make([]llm.Message, len(rec.messages))
	copy(messages, rec.messages)
	return messages, nil
}

func snapshot(conversationID string, rec *record) Conversation {
	messages := make([]llm.Message, len(rec.messages))
	copy(messages, rec.messages)
	return Conversation{
		ID:        conversationID,
		Messages:  messages,
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
	}
}
