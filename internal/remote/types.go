package remote

import (
	"encoding/json"

	"github.com/AnshRaj112/wellsync/internal/models"
)

const (
	ActionSave       = "save"
	ActionClear      = "clear"
	ActionGetAllData = "getAllData"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the JSON body of every POST to the remote endpoint.
type Envelope struct {
	Action  string          `json:"action"`
	Type    string          `json:"type"`
	Payload any             `json:"payload,omitempty"`
	User    models.Identity `json:"user"`
}

// Response is the outer shape of every remote reply.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Snapshot is one identity's data as returned by a pull. Collections hold the
// raw entries sorted newest-first; a type missing from the reply is absent
// from the map.
type Snapshot struct {
	Profile     *models.Profile
	Collections map[models.CollectionType][]json.RawMessage
}

// AdminSnapshot is the administrative pull of every identity.
type AdminSnapshot struct {
	Profiles    map[string]models.Profile
	Collections map[string]map[models.CollectionType][]json.RawMessage
	LoginLogs   []models.LoginLog
}

// Usernames lists every identity present in the admin snapshot.
func (a *AdminSnapshot) Usernames() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if _, ok := seen[u]; ok || u == "" {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for u := range a.Profiles {
		add(u)
	}
	for u := range a.Collections {
		add(u)
	}
	return out
}
