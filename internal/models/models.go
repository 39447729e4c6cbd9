package models

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Settings{},
		&Client{},
		&Project{},
		&WorkHour{},
		&Invoice{},
		&InvoiceWorkHour{},
		&NotificationLog{},
		&InAppNotification{},
	}
}
