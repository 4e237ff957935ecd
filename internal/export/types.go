// Package export reads the raw files of a Slack workspace export archive.
// Required fields are pointer-typed so a missing key is distinguishable from
// a zero value.
package export

import "fmt"

// MissingFieldError reports a required field absent from one export record.
// It is fatal to that single record only.
type MissingFieldError struct {
	Entity   string
	SourceID string
	Field    string
}

func (e *MissingFieldError) Error() string {
	id := e.SourceID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("%s %s: missing required field %q", e.Entity, id, e.Field)
}

// RawChannel is one entry of channels.json.
type RawChannel struct {
	ID       *string   `json:"id"`
	Name     *string   `json:"name"`
	Topic    *RawTopic `json:"topic"`
	Archived *bool     `json:"is_archived"`
	Pins     []RawPin  `json:"pins"`
}

// RawTopic is the topic object of a channel entry.
type RawTopic struct {
	Value string `json:"value"`
}

// RawPin references a pinned message by its timestamp.
type RawPin struct {
	ID string `json:"id"`
}

// RawUser is one entry of users.json.
type RawUser struct {
	ID      string     `json:"id"`
	Deleted bool       `json:"deleted"`
	IsBot   bool       `json:"is_bot"`
	Color   string     `json:"color"`
	Name    string     `json:"name"`
	Real    string     `json:"real_name"`
	Profile RawProfile `json:"profile"`
}

// RawProfile is the nested profile object of a user entry.
type RawProfile struct {
	DisplayName string `json:"display_name"`
	RealName    string `json:"real_name"`
	Image       string `json:"image_192"`
	BotID       string `json:"bot_id"`
	APIAppID    string `json:"api_app_id"`
}

// RawMessage is one entry of a per-day message file.
type RawMessage struct {
	Type     *string   `json:"type"`
	Subtype  string    `json:"subtype"`
	Text     *string   `json:"text"`
	TS       *string   `json:"ts"`
	User     string    `json:"user"`
	BotID    string    `json:"bot_id"`
	Username string    `json:"username"`
	Files    []RawFile `json:"files"`
}

// RawFile is an uploaded file reference on a message.
type RawFile struct {
	URL  *string `json:"url_private"`
	Size *int64  `json:"size"`
}

// DisplayName picks the best available name for a user entry.
func (u RawUser) DisplayName() string {
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	if u.Profile.RealName != "" {
		return u.Profile.RealName
	}
	if u.Real != "" {
		return u.Real
	}
	return u.Name
}
