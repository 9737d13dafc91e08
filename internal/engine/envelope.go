package engine

import (
	"time"

	"github.com/google/uuid"
)

// Envelope 실행 결과 래퍼 (CLI --json, API 공통)
// run_id + config_hash로 결과와 설정 스냅샷을 연결
type Envelope struct {
	RunID       string      `json:"run_id"`
	ConfigHash  string      `json:"config_hash"`
	Operation   string      `json:"operation"`
	GeneratedAt time.Time   `json:"generated_at"`
	Result      interface{} `json:"result"`
}

// Wrap stamps result with a fresh run id and the engine config hash
func (e *Engine) Wrap(operation string, result interface{}) Envelope {
	return Envelope{
		RunID:       uuid.New().String(),
		ConfigHash:  e.hash,
		Operation:   operation,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
	}
}
