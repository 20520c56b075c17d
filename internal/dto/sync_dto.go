package dto

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SyncStatusResponse struct {
	Pending      int64  `json:"pending"`
	CircuitState string `json:"circuit_state"`
}

type FlushResponse struct {
	Triggered bool  `json:"triggered"`
	Pending   int64 `json:"pending"`
}
