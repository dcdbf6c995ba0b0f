// README: Notification payload delivered to a user's inbox.
package notify

import (
    "time"

    "gofer/internal/types"
)

type Notification struct {
    UserID    types.ID       `json:"user_id"`
    Title     string         `json:"title"`
    Body      string         `json:"body"`
    Type      string         `json:"type"`
    Data      map[string]any `json:"data,omitempty"`
    CreatedAt time.Time      `json:"created_at"`
}
