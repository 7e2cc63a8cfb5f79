package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"jobproxy-engine/internal/config"
	"jobproxy-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setUpstreamPasswordReq struct {
	Password string `json:"password"`
}

// SetUpstreamPassword serves POST /api/secrets/upstream: stores the platform
// login password in the OS keychain. A restart picks it up.
func (h SecretsHandler) SetUpstreamPassword(w http.ResponseWriter, r *http.Request) {
	var req setUpstreamPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	account := secrets.UpstreamKeyringAccount(cfg)
	if err := secrets.SetUpstreamPassword(account, req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
