package models

import (
	"encoding/json"
	"time"
)

// NotificationType selects the delivery channel of a notification.
type NotificationType string

const (
	NotificationTypeToast NotificationType = "toast"
	NotificationTypeInApp NotificationType = "in-app"
	NotificationTypePush  NotificationType = "push"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeToast, NotificationTypeInApp, NotificationTypePush:
		return true
	}
	return false
}

// Stored reports whether notifications of this type land in the registry list.
func (t NotificationType) Stored() bool {
	return t == NotificationTypeInApp || t == NotificationTypePush
}

type NotificationCategory string

const (
	NotificationCategoryPlant   NotificationCategory = "plant"
	NotificationCategoryWeather NotificationCategory = "weather"
	NotificationCategorySystem  NotificationCategory = "system"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case NotificationCategoryPlant, NotificationCategoryWeather, NotificationCategorySystem:
		return true
	}
	return false
}

// DefaultIcon is the glyph shown when a notification does not carry its own.
func (c NotificationCategory) DefaultIcon() string {
	switch c {
	case NotificationCategoryPlant:
		return "🌿"
	case NotificationCategoryWeather:
		return "🌤️"
	default:
		return "🔔"
	}
}

type Notification struct {
	ID        string               `json:"id"`
	Type      NotificationType     `json:"type"`
	Category  NotificationCategory `json:"category"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Icon      string               `json:"icon,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Read      bool                 `json:"read"`
	Key       string               `json:"key,omitempty"`
	Data      json.RawMessage      `json:"data,omitempty"`
}

// NotificationInput is what callers hand to the registry. ID, timestamp and
// read state are always assigned by the registry.
type NotificationInput struct {
	Type     NotificationType     `json:"type"`
	Category NotificationCategory `json:"category"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Icon     string               `json:"icon,omitempty"`
	Key      string               `json:"key,omitempty"`
	Data     json.RawMessage      `json:"data,omitempty"`
}

// Toast is a transient display event. It is never stored.
type Toast struct {
	ID       string               `json:"id"`
	Category NotificationCategory `json:"category,omitempty"`
	Title    string               `json:"title,omitempty"`
	Message  string               `json:"message"`
	Icon     string               `json:"icon,omitempty"`
	Duration time.Duration        `json:"duration"`
	ShownAt  time.Time            `json:"shown_at"`
}
