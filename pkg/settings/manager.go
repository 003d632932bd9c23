package settings

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type TelegramUser struct {
	ID     string
	Name   string
	ChatID string
}

// Notifications tells which session kinds a user wants to hear about when a
// new round becomes available.
type Notifications map[model.SessionKind]bool

func AllEnabled() Notifications {
	n := Notifications{}
	for _, k := range model.SessionKinds {
		n[k] = true
	}
	return n
}

func AllDisabled() Notifications {
	n := Notifications{}
	for _, k := range model.SessionKinds {
		n[k] = false
	}
	return n
}

func (n Notifications) Symbol(kind model.SessionKind) string {
	return symbolStatus(n[kind])
}

func (n Notifications) enabledInt(kind model.SessionKind) int {
	if n[kind] {
		return 1
	}
	return 0
}

func (n Notifications) String() string {
	status := []string{}
	for _, k := range model.SessionKinds {
		status = append(status, fmt.Sprintf("%s New %q sessions", symbolStatus(n[k]), k.Label()))
	}
	return strings.Join(status, "\n")
}

func symbolStatus(enabled bool) string {
	if enabled {
		return "🔔"
	}
	return "🔕"
}

func (n Notifications) setEnabled(kind model.SessionKind, enabled bool) {
	n[kind] = enabled
}

type Manager struct {
	db *sql.DB
	mu sync.Mutex
}

func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", dbPath))
	if err != nil {
		logger.Error("error opening database: %s", err)
		return nil, errors.Wrap(err, "opening settings database")
	}

	_, err = db.Exec(buildCreateNotificationsTable())
	if err != nil {
		logger.Error("error init database: %s", err)
		db.Close()
		return nil, errors.Wrap(err, "initialising settings database")
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.db.Close()
}

// ToggleNotification flips the subscription of user to new sessions of kind.
func (m *Manager) ToggleNotification(user TelegramUser, kind model.SessionKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := kindColumns[kind]; !ok {
		return fmt.Errorf("unknown session kind %q", kind)
	}
	n, err := m.listNotifications(user.ID)
	if err != nil {
		return err
	}

	n.setEnabled(kind, !n[kind])
	query, args := buildUpsertUserCommand(user, n)
	_, err = m.db.Exec(query, args...)
	if err != nil {
		logger.Error("error updating database: %s", err)
		return err
	}
	return nil
}

func (m *Manager) ListNotifications(userID string) (Notifications, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listNotifications(userID)
}

// ListSubscribers returns the users notified about new sessions of kind.
func (m *Manager) ListSubscribers(kind model.SessionKind) ([]TelegramUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, read, err := buildSelectSubscribersCommand(kind)
	if err != nil {
		return []TelegramUser{}, err
	}
	rows, err := m.db.Query(query)
	if err != nil {
		return []TelegramUser{}, err
	}
	return read(rows)
}

func (m *Manager) listNotifications(userID string) (Notifications, error) {
	query, read := buildSelectUserCommand()
	rows, err := m.db.Query(query, userID)
	if err != nil {
		return AllDisabled(), err
	}
	return read(rows)
}
