package domain

import "time"

// Contact is a message sent through the public contact form.
type Contact struct {
	ID        int64
	Name      string
	Email     string
	Subject   string
	Message   string
	Read      bool
	CreatedAt time.Time
}
