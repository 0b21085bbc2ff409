package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const identitiesFile = "identities.json"

// FileRepository implements Repository on a single JSON file, rewritten
// atomically on every mutation.
type FileRepository struct {
	dataDir    string
	identities map[uuid.UUID]*Identity
	mutex      sync.RWMutex
}

// identityRecord is the on-disk shape. Unlike Identity it keeps the secret
// fields.
type identityRecord struct {
	ID                     uuid.UUID  `json:"id"`
	DisplayName            string     `json:"display_name"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"password_hash,omitempty"`
	ExternalID             string     `json:"external_id,omitempty"`
	AuthMethod             AuthMethod `json:"auth_method"`
	ProfilePictureURL      string     `json:"profile_picture_url,omitempty"`
	EmailVerified          bool       `json:"email_verified"`
	VerificationCode       string     `json:"verification_code,omitempty"`
	VerificationCodeExpiry *time.Time `json:"verification_code_expiry,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

type identityData struct {
	Identities []identityRecord `json:"identities"`
}

// NewFileRepository creates a file-based identity repository in dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir:    dataDir,
		identities: make(map[uuid.UUID]*Identity),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if i, ok := r.identities[id]; ok {
		return i.Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *FileRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return findIn(r.identities, func(i *Identity) bool { return i.Email == email })
}

func (r *FileRepository) FindByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return findIn(r.identities, func(i *Identity) bool { return i.ExternalID == externalID })
}

func (r *FileRepository) Create(ctx context.Context, identity *Identity) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.identities[identity.ID]; ok || conflicts(r.identities, identity) {
		return ErrDuplicate
	}

	r.identities[identity.ID] = identity.Clone()
	if err := r.save(); err != nil {
		delete(r.identities, identity.ID)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileRepository) Update(ctx context.Context, identity *Identity) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prev, ok := r.identities[identity.ID]
	if !ok {
		return ErrNotFound
	}
	if conflicts(r.identities, identity) {
		return ErrDuplicate
	}

	r.identities[identity.ID] = identity.Clone()
	if err := r.save(); err != nil {
		r.identities[identity.ID] = prev
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prev, ok := r.identities[id]
	if !ok {
		return ErrNotFound
	}

	delete(r.identities, id)
	if err := r.save(); err != nil {
		r.identities[id] = prev
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// load reads identities from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, identitiesFile)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var stored identityData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.identities = make(map[uuid.UUID]*Identity, len(stored.Identities))
	for _, rec := range stored.Identities {
		i := fromRecord(rec)
		r.identities[i.ID] = i
	}
	return nil
}

// save writes identities to file atomically
func (r *FileRepository) save() error {
	records := make([]identityRecord, 0, len(r.identities))
	for _, i := range r.identities {
		records = append(records, toRecord(i))
	}

	jsonData, err := json.MarshalIndent(identityData{Identities: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, identitiesFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, filepath.Join(r.dataDir, identitiesFile)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func toRecord(i *Identity) identityRecord {
	return identityRecord{
		ID:                     i.ID,
		DisplayName:            i.DisplayName,
		Email:                  i.Email,
		PasswordHash:           i.PasswordHash,
		ExternalID:             i.ExternalID,
		AuthMethod:             i.AuthMethod,
		ProfilePictureURL:      i.ProfilePictureURL,
		EmailVerified:          i.EmailVerified,
		VerificationCode:       i.VerificationCode,
		VerificationCodeExpiry: i.VerificationCodeExpiry,
		CreatedAt:              i.CreatedAt,
		UpdatedAt:              i.UpdatedAt,
	}
}

func fromRecord(rec identityRecord) *Identity {
	return &Identity{
		ID:                     rec.ID,
		DisplayName:            rec.DisplayName,
		Email:                  rec.Email,
		PasswordHash:           rec.PasswordHash,
		ExternalID:             rec.ExternalID,
		AuthMethod:             rec.AuthMethod,
		ProfilePictureURL:      rec.ProfilePictureURL,
		EmailVerified:          rec.EmailVerified,
		VerificationCode:       rec.VerificationCode,
		VerificationCodeExpiry: rec.VerificationCodeExpiry,
		CreatedAt:              rec.CreatedAt,
		UpdatedAt:              rec.UpdatedAt,
	}
}
