package agentapi

import (
	"net/http"

	"github.com/IsaacDSC/eeudesk/internal/offline"
	"github.com/IsaacDSC/eeudesk/internal/respcache"
	"github.com/IsaacDSC/eeudesk/pkg/httpadapter"
)

type SyncStatus struct {
	Online  bool            `json:"online"`
	Pending int             `json:"pending"`
	Items   []offline.Item  `json:"items"`
	Cache   respcache.Stats `json:"cache"`
}

func GetSyncStatusHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /api/sync/status",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			items := desk.PendingWrites()
			writeJSON(w, http.StatusOK, SyncStatus{
				Online:  desk.Online(),
				Pending: len(items),
				Items:   items,
				Cache:   desk.CacheStats(),
			})
		},
	}
}

func GetSyncDrainHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "POST /api/sync/drain",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			report := desk.Drain(r.Context())
			status := http.StatusOK
			if report.Skipped {
				status = http.StatusConflict
			}
			writeJSON(w, status, report)
		},
	}
}

// GetClearCacheHandle drops the whole cache, or only keys containing
// ?match= when given.
func GetClearCacheHandle(desk Desk) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "DELETE /api/sync/cache",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			if match := r.URL.Query().Get("match"); match != "" {
				removed := desk.InvalidateCache(match)
				writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
				return
			}

			desk.ClearCache()
			w.WriteHeader(http.StatusNoContent)
		},
	}
}
