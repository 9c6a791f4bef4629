package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"offerdesk/internal/models"
)

const BackupVersion = "1.0"

// BackupData is the exported snapshot of the spreadsheet
type BackupData struct {
	Version    string                 `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Offers     []models.LoanOffer     `json:"offers"`
	Posts      []models.ScheduledPost `json:"posts"`
	Config     []models.ConfigItem    `json:"config"`
}

// BackupService exports and restores the sheets
type BackupService struct {
	sheets SheetGateway
	now    func() time.Time
}

func NewBackupService(sheets SheetGateway) *BackupService {
	return &BackupService{sheets: sheets, now: time.Now}
}

// Snapshot reads every sheet into a BackupData
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: s.now(),
	}

	var err error
	if backup.Offers, err = s.sheets.ReadOffers(ctx); err != nil {
		return nil, fmt.Errorf("failed to export offers: %w", err)
	}
	if backup.Posts, err = s.sheets.ReadPosts(ctx); err != nil {
		return nil, fmt.Errorf("failed to export posts: %w", err)
	}
	if backup.Config, err = s.sheets.ReadConfig(ctx); err != nil {
		return nil, fmt.Errorf("failed to export config: %w", err)
	}
	return backup, nil
}

// Export writes the snapshot as indented JSON to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d offers, %d posts, %d config items",
		len(backup.Offers), len(backup.Posts), len(backup.Config))
	return nil
}

// ExportToFile creates outputPath and exports into it
func (s *BackupService) ExportToFile(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.Export(ctx, file); err != nil {
		return err
	}
	log.Printf("Backup written to %s", outputPath)
	return nil
}

// Import restores config and posts from r. Offers are append-only and
// are left untouched.
func (s *BackupService) Import(ctx context.Context, r io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	if err := s.sheets.WriteConfig(ctx, backup.Config); err != nil {
		return fmt.Errorf("failed to import config: %w", err)
	}
	if err := s.sheets.WritePosts(ctx, backup.Posts); err != nil {
		return fmt.Errorf("failed to import posts: %w", err)
	}

	log.Printf("Imported: %d posts, %d config items", len(backup.Posts), len(backup.Config))
	return nil
}

// ImportFromFile opens inputPath and imports it
func (s *BackupService) ImportFromFile(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.Import(ctx, file)
}
