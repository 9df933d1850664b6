package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Status       string
	CreatedAt    time.Time
}
