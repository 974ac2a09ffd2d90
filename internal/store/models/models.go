package models

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// OptionalList is a text[] column that distinguishes a NULL column
// (attribute never captured) from a present-but-empty array. Handlers
// phrase those two cases differently.
type OptionalList struct {
	Values []string
	Valid  bool
}

func (l *OptionalList) Scan(src interface{}) error {
	if src == nil {
		l.Values = nil
		l.Valid = false
		return nil
	}

	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("failed to scan list column: %w", err)
	}

	l.Values = []string(arr)
	l.Valid = true
	return nil
}

// HasValues reports whether the list is present and non-empty.
func (l OptionalList) HasValues() bool {
	return l.Valid && len(l.Values) > 0
}

type Lodge struct {
	ID                 int64         `db:"id"`
	Name               string        `db:"name"`
	Country            string        `db:"country"`
	Region             string        `db:"region"`
	Vibe               string        `db:"vibe"`
	Style              string        `db:"style"`
	LuxuryTier         string        `db:"luxury_tier"`
	MalariaZone        bool          `db:"malaria_zone"`
	CommunalPool       bool          `db:"communal_pool"`
	Spa                bool          `db:"spa"`
	FamilyFriendly     bool          `db:"family_friendly"`
	PhotographyFocused bool          `db:"photography_focused"`
	RoomsTotal         int           `db:"rooms_total"`
	TransferMinutes    sql.NullInt64 `db:"airport_transfer_minutes"`
	KeyWildlife        OptionalList  `db:"key_wildlife"`
	IdealFor           OptionalList  `db:"ideal_for"`
	ActivitiesIncluded OptionalList  `db:"activities_included"`
	ActivitiesOptional OptionalList  `db:"activities_optional"`
}

// LodgeSummary is the partial projection detail handlers and the
// context retriever work from.
type LodgeSummary struct {
	ID              int64         `db:"id"`
	Name            string        `db:"name"`
	Country         string        `db:"country"`
	Region          string        `db:"region"`
	Vibe            string        `db:"vibe"`
	Style           string        `db:"style"`
	LuxuryTier      string        `db:"luxury_tier"`
	FamilyFriendly  bool          `db:"family_friendly"`
	RoomsTotal      int           `db:"rooms_total"`
	TransferMinutes sql.NullInt64 `db:"airport_transfer_minutes"`
}

type RoomType struct {
	ID             int64  `db:"id"`
	LodgeID        int64  `db:"lodge_id"`
	LodgeName      string `db:"lodge_name"`
	Name           string `db:"name"`
	Description    string `db:"description"`
	AvailableCount int    `db:"available_count"`
	PrivatePool    bool   `db:"private_pool"`
	FamilySuite    bool   `db:"family_suite"`
	OutdoorShower  bool   `db:"outdoor_shower"`
}

type KnowledgeEntry struct {
	Topic    string         `db:"topic"`
	Content  string         `db:"content"`
	Keywords pq.StringArray `db:"keywords"`
}

// ChatTurn is one prior exchange supplied by the caller. The service
// keeps no turn state of its own between requests.
type ChatTurn struct {
	Role  string     `json:"role"`
	Parts []TurnPart `json:"parts"`
}

type TurnPart struct {
	Text string `json:"text"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Text joins the turn's parts into one string.
func (t ChatTurn) Text() string {
	switch len(t.Parts) {
	case 0:
		return ""
	case 1:
		return t.Parts[0].Text
	}

	out := t.Parts[0].Text
	for _, p := range t.Parts[1:] {
		out += "\n" + p.Text
	}
	return out
}

// IsValid reports whether the turn can be forwarded upstream.
func (t ChatTurn) IsValid() bool {
	if t.Role != RoleUser && t.Role != RoleModel {
		return false
	}
	return t.Text() != ""
}
