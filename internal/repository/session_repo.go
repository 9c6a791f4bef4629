package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"offerdesk/internal/database"
	"offerdesk/internal/models"
	"offerdesk/internal/security"
)

// SessionKey is the app_state slot holding the signed-in session
const SessionKey = "auth_session"

// SessionRepository persists the single auth session slot
type SessionRepository struct {
	db     *database.DB
	sealer *security.Sealer
}

func NewSessionRepository(db *database.DB, sealer *security.Sealer) *SessionRepository {
	return &SessionRepository{db: db, sealer: sealer}
}

// Load returns the stored session. ok is false when the slot is empty.
func (r *SessionRepository) Load(ctx context.Context) (session models.AuthSession, ok bool, err error) {
	value, err := r.db.GetState(ctx, SessionKey)
	if errors.Is(err, database.ErrStateNotFound) {
		return models.AuthSession{}, false, nil
	}
	if err != nil {
		return models.AuthSession{}, false, fmt.Errorf("failed to read session: %w", err)
	}

	plaintext, err := r.sealer.Open(value)
	if err != nil {
		return models.AuthSession{}, false, err
	}
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return models.AuthSession{}, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, true, nil
}

// Save overwrites the slot with session
func (r *SessionRepository) Save(ctx context.Context, session models.AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	value, err := r.sealer.Seal(data)
	if err != nil {
		return err
	}
	return r.db.PutState(ctx, SessionKey, value)
}

// Clear empties the slot
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.db.DeleteState(ctx, SessionKey)
}
