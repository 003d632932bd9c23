package settings

import (
	"database/sql"
	"fmt"

	"f1telemetrybot/pkg/model"
)

// columns per session kind in the notifications table
var kindColumns = map[model.SessionKind]string{
	model.Qualifying:     "qual",
	model.Race:           "race",
	model.SprintShootout: "shootout",
	model.Sprint:         "sprint",
}

func buildCreateNotificationsTable() string {
	return `CREATE TABLE IF NOT EXISTS notifications (
		userid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		chatid TEXT NOT NULL,
		qual INTEGER,
		race INTEGER,
		shootout INTEGER,
		sprint INTEGER);`
}

func buildSelectUserCommand() (string, func(*sql.Rows) (Notifications, error)) {
	fields := "qual, race, shootout, sprint"
	return fmt.Sprintf(`SELECT %s FROM notifications WHERE userid = ?`, fields), processSelectUserRows
}

func processSelectUserRows(rows *sql.Rows) (Notifications, error) {
	defer rows.Close()

	n := AllDisabled()
	// only can be one row
	if rows.Next() {
		var qual, race, shootout, sprint int
		err := rows.Scan(&qual, &race, &shootout, &sprint)
		if err != nil {
			return n, err
		}
		n.setEnabled(model.Qualifying, qual == 1)
		n.setEnabled(model.Race, race == 1)
		n.setEnabled(model.SprintShootout, shootout == 1)
		n.setEnabled(model.Sprint, sprint == 1)
		return n, nil
	}
	return n, rows.Err()
}

func buildSelectSubscribersCommand(kind model.SessionKind) (string, func(rows *sql.Rows) ([]TelegramUser, error), error) {
	column, ok := kindColumns[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown session kind %q", kind)
	}
	fields := "userid, name, chatid"
	return fmt.Sprintf(`SELECT %s FROM notifications WHERE %s = 1 ORDER BY userid`, fields, column), processSelectSubscribersRows, nil
}

func processSelectSubscribersRows(rows *sql.Rows) ([]TelegramUser, error) {
	defer rows.Close()

	users := make([]TelegramUser, 0)
	for rows.Next() {
		var id, name, chatid string
		err := rows.Scan(&id, &name, &chatid)
		if err != nil {
			return users, err
		}
		users = append(users, TelegramUser{
			ID:     id,
			Name:   name,
			ChatID: chatid,
		})
	}
	return users, rows.Err()
}

func buildUpsertUserCommand(user TelegramUser, n Notifications) (string, []any) {
	fields := "userid, name, chatid, qual, race, shootout, sprint"
	args := []any{
		user.ID, user.Name, user.ChatID,
		n.enabledInt(model.Qualifying),
		n.enabledInt(model.Race),
		n.enabledInt(model.SprintShootout),
		n.enabledInt(model.Sprint),
	}
	return fmt.Sprintf(`INSERT OR REPLACE INTO notifications (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, fields), args
}
