package api

import (
	"bytes"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Timestamp is an optional point in time in a request message. It holds a
// google.protobuf.Timestamp and uses its JSON mapping, an RFC 3339 string.
type Timestamp struct {
	pb *timestamppb.Timestamp
}

// NewTimestamp wraps t for a request message.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{pb: timestamppb.New(t)}
}

// Time returns the instant in UTC, or the zero time when ts is unset.
func (ts *Timestamp) Time() time.Time {
	if ts == nil || ts.pb == nil {
		return time.Time{}
	}
	return ts.pb.AsTime()
}

// TimePtr is like Time but returns nil when ts is unset.
func (ts *Timestamp) TimePtr() *time.Time {
	if ts == nil || ts.pb == nil {
		return nil
	}
	t := ts.pb.AsTime()
	return &t
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.pb == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(ts.pb)
}

// UnmarshalJSON implements json.Unmarshaler. Out-of-range and malformed
// values are rejected.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.pb = nil
		return nil
	}
	pb := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal(data, pb); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	ts.pb = pb
	return nil
}
