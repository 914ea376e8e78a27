package conversation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
	"github.com/leixiaohui-1974/HydroResources/pkg/logging"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	name TEXT,
	tool_call_id TEXT,
	tool_calls TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation
	ON conversation_messages (conversation_id, id);
`

// Archiver mirrors store mutations into SQLite so history survives a
// restart. Writes happen on a single background worker; the store's
// append path never blocks on disk.
type Archiver struct {
	db     *sql.DB
	logger logging.Logger

	events chan archiveEvent
	wg     sync.WaitGroup
	once   sync.Once
}

type archiveEvent struct {
	conversationID string
	message        llm.Message
	clear          bool
}

func OpenArchiveDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewArchiver(db *sql.DB, logger logging.Logger) (*Archiver, error) {
	if _, err := db.Exec(archiveSchema); err != nil {
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	a := &Archiver{
		db:     db,
		logger: logger,
		events: make(chan archiveEvent, 256),
	}
	a.wg.Add(1)
	go a.run()
	return a, nil
}

func (a *Archiver) MessageAppended(conversationID string, message llm.Message) {
	select {
	case a.events <- archiveEvent{conversationID: conversationID, message: message}:
	default:
		a.logger.WithFields(logging.Fields{
			"conversation_id": conversationID,
		}).Warn("Archive queue full, dropping message")
	}
}

func (a *Archiver) ConversationCleared(conversationID string) {
	select {
	case a.events <- archiveEvent{conversationID: conversationID, clear: true}:
	default:
		a.logger.WithFields(logging.Fields{
			"conversation_id": conversationID,
		}).Warn("Archive queue full, dropping clear")
	}
}

// Close drains pending events and stops the worker.
func (a *Archiver) Close() {
	a.once.Do(func() {
		close(a.events)
	})
	a.wg.Wait()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for event := range a.events {
		if event.clear {
			a.deleteConversation(event.conversationID)
			continue
		}
		a.insertMessage(event.conversationID, event.message)
	}
}

func (a *Archiver) insertMessage(conversationID string, message llm.Message) {
	// ToolCalls is excluded from the message's JSON form, so it gets its
	// own column; without it a reloaded history would pair tool results
	// with an assistant turn that requested nothing.
	var toolCalls string
	if len(message.ToolCalls) > 0 {
		encoded, err := json.Marshal(message.ToolCalls)
		if err != nil {
			a.logger.WithFields(logging.Fields{
				"conversation_id": conversationID,
				"error":           err.Error(),
			}).Error("Failed to encode tool calls for archive")
			return
		}
		toolCalls = string(encoded)
	}
	_, err := a.db.Exec(
		`INSERT INTO conversation_messages (conversation_id, role, content, name, tool_call_id, tool_calls, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversationID, message.Role, message.Content, message.Name, message.ToolCallID, toolCalls, time.Now().UTC(),
	)
	if err != nil {
		a.logger.WithFields(logging.Fields{
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Error("Failed to archive message")
	}
}

func (a *Archiver) deleteConversation(conversationID string) {
	_, err := a.db.Exec(`DELETE FROM conversation_messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		a.logger.WithFields(logging.Fields{
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Error("Failed to clear archived conversation")
	}
}

// LoadHistory reads a conversation's archived messages in insertion
// order, for rehydrating the in-memory store on startup.
func (a *Archiver) LoadHistory(conversationID string) ([]llm.Message, error) {
	rows, err := a.db.Query(
		`SELECT role, content, name, tool_call_id, tool_calls FROM conversation_messages WHERE conversation_id = ? ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load archived history: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var message llm.Message
		var name, toolCallID, toolCalls sql.NullString
		if err := rows.Scan(&message.Role, &message.Content, &name, &toolCallID, &toolCalls); err != nil {
			return nil, fmt.Errorf("scan archived message: %w", err)
		}
		message.Name = name.String
		message.ToolCallID = toolCallID.String
		if toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &message.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode archived tool calls: %w", err)
			}
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// ConversationIDs lists every archived conversation.
func (a *Archiver) ConversationIDs() ([]string, error) {
	rows, err := a.db.Query(`SELECT DISTINCT conversation_id FROM conversation_messages ORDER BY conversation_id`)
	if err != nil {
		return nil, fmt.Errorf("list archived conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Rehydrate seeds the store with every archived conversation. Call
// before subscribing the archiver so reloads are not re-archived.
func (a *Archiver) Rehydrate(store *Store) error {
	ids, err := a.ConversationIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		messages, err := a.LoadHistory(id)
		if err != nil {
			return err
		}
		store.Restore(id, messages)
	}
	if len(ids) > 0 {
		a.logger.WithFields(logging.Fields{
			"conversations": len(ids),
		}).Info("Rehydrated conversations from archive")
	}
	return nil
}
