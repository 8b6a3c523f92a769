package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnshRaj112/wellsync/internal/models"
)

// SheetStore persists every identity's profile and history collections.
type SheetStore interface {
	SaveProfile(ctx context.Context, user models.Identity, profile models.Profile) error
	SaveCollection(ctx context.Context, username string, t models.CollectionType, entries []json.RawMessage) error
	ClearCollection(ctx context.Context, username string, t models.CollectionType) error
	LoadUser(ctx context.Context, username string) (*UserData, error)
	LoadAll(ctx context.Context) (*Dataset, error)
}

// LoginLogStore keeps the login audit trail.
type LoginLogStore interface {
	Record(ctx context.Context, entry models.LoginLog) error
	Recent(ctx context.Context, limit int) ([]models.LoginLog, error)
}

// UserData is one identity's stored state.
type UserData struct {
	Profile     *models.Profile
	Collections map[models.CollectionType][]json.RawMessage
}

// MarshalJSON renders the pull reply: the profile (or null) and one array per
// collection type, empty when nothing is stored.
func (u *UserData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(models.CollectionTypes)+1)
	out["profile"] = u.Profile
	for _, t := range models.CollectionTypes {
		entries := u.Collections[t]
		if entries == nil {
			entries = []json.RawMessage{}
		}
		out[string(t)] = entries
	}
	return json.Marshal(out)
}

// ProfileRecord is a stored profile with the identity that last saved it.
type ProfileRecord struct {
	User      models.Identity
	Profile   models.Profile
	UpdatedAt time.Time
}

// MarshalJSON flattens the profile fields and the identity into one row.
func (p ProfileRecord) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(p.Profile)
	if err != nil {
		return nil, err
	}
	row := make(map[string]any)
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	row["username"] = p.User.Username
	row["displayName"] = p.User.DisplayName
	row["role"] = p.User.Role
	if p.User.Avatar != "" {
		row["avatar"] = p.User.Avatar
	}
	if !p.UpdatedAt.IsZero() {
		row["updatedAt"] = p.UpdatedAt
	}
	return json.Marshal(row)
}

// Dataset is the administrative view of every identity. Collection rows carry
// a "username" field naming their owner.
type Dataset struct {
	Profiles    []ProfileRecord
	Collections map[models.CollectionType][]json.RawMessage
	LoginLogs   []models.LoginLog
}

func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(models.CollectionTypes)+2)
	profiles := d.Profiles
	if profiles == nil {
		profiles = []ProfileRecord{}
	}
	logs := d.LoginLogs
	if logs == nil {
		logs = []models.LoginLog{}
	}
	out["profiles"] = profiles
	out["loginLogs"] = logs
	for _, t := range models.CollectionTypes {
		rows := d.Collections[t]
		if rows == nil {
			rows = []json.RawMessage{}
		}
		out[string(t)] = rows
	}
	return json.Marshal(out)
}

// tagEntry adds the owner's username to an entry object. Non-object entries
// are dropped.
func tagEntry(raw json.RawMessage, username string) (json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	name, err := json.Marshal(username)
	if err != nil {
		return nil, false
	}
	fields["username"] = name
	tagged, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return tagged, true
}
