package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spetersoncode/concierge"
)

// Key prefixes for the persisted documents.
const (
	ProfilePrefix      = "profile/"
	ConsultationPrefix = "consultation/"
	TastePrefix        = "taste/"
)

// ProfileKey is the key of a user's profile.
func ProfileKey(userID string) string {
	return ProfilePrefix + userID
}

// TasteKey is the key of a user's taste session.
func TasteKey(userID string) string {
	return TastePrefix + userID
}

// ConsultationKey is the key of one record. Keys of one user sort by
// creation time.
func ConsultationKey(userID string, createdAt time.Time, id string) string {
	return fmt.Sprintf("%s%s/%020d-%s", ConsultationPrefix, userID, createdAt.UnixNano(), id)
}

// GetJSON reads and decodes the value under key.
func GetJSON[T any](ctx context.Context, repo concierge.Repository, key string) (T, bool, error) {
	var v T
	raw, ok, err := repo.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, concierge.NewPermanentError(concierge.ErrStorage, "decode "+key, 0, err)
	}
	return v, true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON[T any](ctx context.Context, repo concierge.Repository, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return concierge.NewPermanentError(concierge.ErrStorage, "encode "+key, 0, err)
	}
	return repo.Put(ctx, key, raw)
}

// ListJSON decodes every value whose key starts with prefix, in key order.
func ListJSON[T any](ctx context.Context, repo concierge.Repository, prefix string) ([]T, error) {
	keys, err := repo.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, ok, err := GetJSON[T](ctx, repo, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// LoadProfile returns the user's profile, or nil when none is stored.
func LoadProfile(ctx context.Context, repo concierge.Repository, userID string) (*concierge.Profile, error) {
	p, ok, err := GetJSON[concierge.Profile](ctx, repo, ProfileKey(userID))
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SaveProfile stores the profile, stamping UpdatedAt.
func SaveProfile(ctx context.Context, repo concierge.Repository, p concierge.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	return PutJSON(ctx, repo, ProfileKey(p.UserID), p)
}

// AllProfiles returns every stored profile.
func AllProfiles(ctx context.Context, repo concierge.Repository) ([]concierge.Profile, error) {
	return ListJSON[concierge.Profile](ctx, repo, ProfilePrefix)
}

// SaveRecord stores a consultation record.
func SaveRecord(ctx context.Context, repo concierge.Repository, r concierge.ConsultationRecord) error {
	return PutJSON(ctx, repo, ConsultationKey(r.UserID, r.CreatedAt, r.ID), r)
}

// History returns the user's most recent records, oldest first. A
// non-positive limit returns all of them.
func History(ctx context.Context, repo concierge.Repository, userID string, limit int) ([]concierge.ConsultationRecord, error) {
	prefix := ConsultationPrefix + userID + "/"
	keys, err := repo.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	out := make([]concierge.ConsultationRecord, 0, len(keys))
	for _, k := range keys {
		r, ok, err := GetJSON[concierge.ConsultationRecord](ctx, repo, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// AllRecords returns every stored consultation record.
func AllRecords(ctx context.Context, repo concierge.Repository) ([]concierge.ConsultationRecord, error) {
	return ListJSON[concierge.ConsultationRecord](ctx, repo, ConsultationPrefix)
}

// LoadTasteSession returns the user's questionnaire session, or nil.
func LoadTasteSession(ctx context.Context, repo concierge.Repository, userID string) (*concierge.TasteSession, error) {
	s, ok, err := GetJSON[concierge.TasteSession](ctx, repo, TasteKey(userID))
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// SaveTasteSession stores the session, stamping UpdatedAt.
func SaveTasteSession(ctx context.Context, repo concierge.Repository, s concierge.TasteSession) error {
	s.UpdatedAt = time.Now().UTC()
	return PutJSON(ctx, repo, TasteKey(s.UserID), s)
}
