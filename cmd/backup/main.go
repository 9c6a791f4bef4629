package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"offerdesk/internal/auth"
	"offerdesk/internal/config"
	"offerdesk/internal/database"
	"offerdesk/internal/repository"
	"offerdesk/internal/security"
	"offerdesk/internal/service"
	"offerdesk/internal/sheets"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importYes := importCmd.Bool("yes", false, "Overwrite the schedule and config sheets without asking")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, newBackupService(ctx, cfg), *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, newBackupService(ctx, cfg), *importInput, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

// newBackupService reaches the spreadsheet with the service account when
// configured, otherwise with the session the dashboard stored
func newBackupService(ctx context.Context, cfg *config.Config) *service.BackupService {
	var opts []option.ClientOption

	if cfg.GoogleCredentials != "" {
		opts = append(opts,
			option.WithCredentialsJSON([]byte(cfg.GoogleCredentials)),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		)
	} else {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		manager := auth.NewManager(auth.Options{
			OAuth: auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
			Store: repository.NewSessionRepository(db, security.NewSealer(cfg.SessionSecret)),
		})
		if err := manager.Initialize(ctx); err != nil {
			log.Fatalf("Failed to restore session: %v", err)
		}
		session, ok := manager.Current()
		if !ok {
			log.Fatal("No signed-in session found; sign in through the dashboard or set GOOGLE_CREDENTIALS")
		}
		if auth.IsNearExpiration(session.ExpiresAt, time.Now()) {
			if err := manager.Refresh(ctx); err != nil {
				log.Fatalf("Failed to refresh session: %v", err)
			}
		}
		log.Printf("Using the session of %s", session.User.Email)
		opts = append(opts, option.WithTokenSource(manager.TokenSource()))
	}

	store, err := sheets.NewSheetsStore(ctx, cfg.SpreadsheetID, opts...)
	if err != nil {
		log.Fatalf("Failed to create Sheets client: %v", err)
	}
	gateway := sheets.NewGateway(store, sheets.SheetNames{
		Offers:   cfg.OffersSheet,
		Schedule: cfg.ScheduleSheet,
		Config:   cfg.ConfigSheet,
	}, nil)
	return service.NewBackupService(gateway)
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting spreadsheet to: %s", outputPath)
	if err := backupService.ExportToFile(ctx, outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, confirmed bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	if !confirmed {
		fmt.Print("WARNING: This will overwrite the schedule and config sheets. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Println("Import cancelled")
			return
		}
	}

	log.Printf("Importing spreadsheet from: %s", inputPath)
	if err := backupService.ImportFromFile(ctx, inputPath); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import complete!")
}

func printUsage() {
	fmt.Println("Offerdesk Spreadsheet Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export offers, schedule and config to a JSON file")
	fmt.Println("  backup import [options]    Restore schedule and config from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -yes              Skip the overwrite confirmation")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  SPREADSHEET_ID       Spreadsheet to back up")
	fmt.Println("  GOOGLE_CREDENTIALS   Service-account JSON (otherwise the dashboard session is used)")
	fmt.Println("  DB_TYPE, DB_PATH, DATABASE_URL   Where the dashboard session is stored")
}
