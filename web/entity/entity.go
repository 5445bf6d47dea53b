// Package entity defines the JSON shapes returned by the web layer.
package entity

import (
	"fmt"

	"github.com/JosKno/CapaIntermedia/database/model"
)

// Msg is the envelope shared by every JSON response.
type Msg struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Envelope returns success and message merged with payload fields.
func Envelope(success bool, message string, payload map[string]any) map[string]any {
	m := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		m[k] = v
	}
	m["success"] = success
	m["message"] = message
	return m
}

// UserView is a user as shown to clients, with a link to its photo.
type UserView struct {
	*model.User
	PhotoURL string `json:"photo_url"`
}

// PhotoURL builds the photo link for a user. stamp defeats client caches
// after a photo change.
func PhotoURL(id int, stamp int64) string {
	return fmt.Sprintf("/api/photo/%d?t=%d", id, stamp)
}
