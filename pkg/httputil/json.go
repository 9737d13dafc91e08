package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBody 요청 본문 최대 크기 (가격 시계열 배치 기준)
const DefaultMaxBody = 32 << 20

// DecodeError 요청 본문 파싱 실패 (400)
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// DecodeJSON decodes a request body into v.
// 알 수 없는 필드, 빈 본문, 여러 JSON 값은 모두 DecodeError
func DecodeJSON(r *http.Request, v interface{}, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &DecodeError{Message: fmt.Sprintf("unsupported content type %q", ct)}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &DecodeError{Message: "request body is empty"}
		}
		return &DecodeError{Message: "invalid JSON: " + err.Error()}
	}
	if dec.More() {
		return &DecodeError{Message: "request body must contain a single JSON object"}
	}
	return nil
}

// RespondJSON writes v with the given status
// ⭐ SSOT: API 응답 직렬화는 여기서만
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody 오류 응답 본문
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Asset  string `json:"asset,omitempty"`
	Metric string `json:"metric,omitempty"`
}

// RespondError writes a plain error message
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}
