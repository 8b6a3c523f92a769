package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/services"
	"github.com/AnshRaj112/wellsync/pkg/utils"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds a POST body; avatars travel inline as data URIs.
const maxBodyBytes = 8 << 20

// SyncHandler serves the sync API and the admin login feed.
type SyncHandler struct {
	svc          *services.SyncService
	adminKeyHash string
	log          logrus.FieldLogger
}

func NewSyncHandler(svc *services.SyncService, adminKeyHash string, log logrus.FieldLogger) *SyncHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncHandler{svc: svc, adminKeyHash: adminKeyHash, log: log}
}

// Get answers ?username= with that identity's data and
// ?action=getAllData&adminKey= with everyone's.
func (h *SyncHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("action") == services.ActionGetAllData {
		if !h.authorizeAdmin(q.Get("adminKey")) {
			metrics.RecordSyncAction(services.ActionGetAllData, "", false)
			writeError(w, http.StatusUnauthorized, "invalid admin key")
			return
		}
		data, err := h.svc.Everything(r.Context())
		metrics.RecordSyncAction(services.ActionGetAllData, "", err == nil)
		if err != nil {
			h.log.WithError(err).Error("admin pull failed")
			writeError(w, http.StatusInternalServerError, "failed to load data")
			return
		}
		writeJSON(w, http.StatusOK, SyncResponse{Status: statusSuccess, Data: data})
		return
	}

	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	data, err := h.svc.Snapshot(r.Context(), username)
	metrics.RecordSyncAction("pull", "", err == nil)
	if err != nil {
		h.log.WithError(err).WithField("username", username).Error("pull failed")
		writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Status: statusSuccess, Data: data})
}

// Post applies a save or clear envelope.
func (h *SyncHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req services.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Apply(r.Context(), req); err != nil {
		if services.IsRequestError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.WithError(err).WithFields(logrus.Fields{
			"action":   req.Action,
			"type":     req.Type,
			"username": req.User.Username,
		}).Error("sync request failed")
		writeError(w, http.StatusInternalServerError, "failed to store data")
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Status: statusSuccess, Message: "saved"})
}

// authorizeAdmin verifies key against the configured argon2id hash. With no
// hash configured every admin request is refused.
func (h *SyncHandler) authorizeAdmin(key string) bool {
	if h.adminKeyHash == "" || key == "" {
		return false
	}
	ok, err := utils.VerifyPassword(key, h.adminKeyHash)
	if err != nil {
		h.log.WithError(err).Warn("admin key hash is unusable")
		return false
	}
	return ok
}
