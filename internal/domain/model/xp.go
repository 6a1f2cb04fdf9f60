package model

import "encoding/json"

// XPTotal is a student's running XP balance as stored in the KV store.
type XPTotal struct {
	StudentID string `json:"studentId"`
	Total     int    `json:"total"`
	UpdatedAt int64  `json:"updatedAt"`
}

// XPEvent is one entry in a student's append-only XP log.
type XPEvent struct {
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
	AwardedAt int64  `json:"awardedAt"`
}

// EncodeXPTotal serializes an XP total for KV storage.
func EncodeXPTotal(t *XPTotal) ([]byte, error) {
	return json.Marshal(t)
}

// DecodeXPTotal deserializes an XP total from KV storage.
func DecodeXPTotal(raw []byte) (*XPTotal, error) {
	var t XPTotal
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// EncodeXPEvent serializes an XP log entry for KV storage.
func EncodeXPEvent(e *XPEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeXPEvent deserializes an XP log entry from KV storage.
func DecodeXPEvent(raw []byte) (*XPEvent, error) {
	var e XPEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
