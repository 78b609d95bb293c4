package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/2beens/trainlog/internal/telemetry/metrics"
	"github.com/2beens/trainlog/internal/telemetry/tracing"
	"github.com/2beens/trainlog/internal/workouts"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	rootBackupsFolderName = "trainlog-backup"
	workoutsFileChunkSize = 350 // number of workouts in one backup file
)

type workoutsSource interface {
	ListCreatedAfter(ctx context.Context, after time.Time) ([]workouts.Workout, error)
}

type GoogleDriveBackupService struct {
	workouts        workoutsSource
	service         *drive.Service
	backupsFolderId string
	metricsManager  *metrics.Manager
}

func NewGoogleDriveBackupService(
	ctx context.Context,
	credentialsJson []byte,
	workoutsRepo workoutsSource,
	metricsManager *metrics.Manager,
) (*GoogleDriveBackupService, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJson))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	rootFolderQuery := fmt.Sprintf("mimeType = 'application/vnd.google-apps.folder' and trashed = false and name = '%s'", rootBackupsFolderName)
	backupsFolder, err := driveService.
		Files.List().
		Q(rootFolderQuery).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	backupsFolderId := ""
	if len(backupsFolder.Files) == 1 {
		rbf := backupsFolder.Files[0]
		log.Printf("root backups folder found, %s: %s", rbf.Name, rbf.Id)
		backupsFolderId = rbf.Id
	} else if len(backupsFolder.Files) == 0 {
		log.Println("root backups folder not found, will recreate")
	} else {
		rbf := backupsFolder.Files[0]
		log.Printf("attention: found %d root backups folders, will take the first one: %s", len(backupsFolder.Files), rbf.Id)
		backupsFolderId = rbf.Id
	}

	s := &GoogleDriveBackupService{
		workouts:       workoutsRepo,
		service:        driveService,
		metricsManager: metricsManager,
	}

	if backupsFolderId == "" {
		log.Println("root backups folder not found, recreating ...")
		backupsFolderId, err = s.createRootBackupsFolder()
		if err != nil {
			return nil, fmt.Errorf("failed to create root backups folder: %w", err)
		}
		log.Printf("new root backups folder created: %s", backupsFolderId)
	} else {
		log.Printf("found backups folder ID: %s", backupsFolderId)
	}

	s.backupsFolderId = backupsFolderId

	return s, nil
}

// Reinit drops the whole backups folder and recreates it from scratch.
func (s *GoogleDriveBackupService) Reinit(ctx context.Context, baseTime time.Time) error {
	log.Println("workouts backup reinit starting ...")

	err := s.service.Files.
		Delete(s.backupsFolderId).
		Do()
	if err != nil {
		return err
	}

	backupsFolderId, err := s.createRootBackupsFolder()
	if err != nil {
		return fmt.Errorf("failed to create root backups folder: %w", err)
	}

	log.Printf("new root backups folder created: %s", backupsFolderId)

	s.backupsFolderId = backupsFolderId

	return s.DoBackup(ctx, baseTime)
}

// DoBackup exports all workouts created after the newest existing backup
// file. With no backup files present it does a full initial export.
func (s *GoogleDriveBackupService) DoBackup(ctx context.Context, baseTime time.Time) (err error) {
	ctx, span := tracing.GlobalBackupTracer.Start(ctx, "backup.doBackup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	backupStart := time.Now()
	defer func() {
		s.metricsManager.HistBackupDuration.Observe(time.Since(backupStart).Seconds())
	}()

	currentAllBackupFiles, err := s.getBackupFiles(s.backupsFolderId)
	if err != nil {
		return err
	}

	if len(currentAllBackupFiles) == 0 {
		log.Println("backups empty, creating initial backup file ...")
		if err := s.createInitialBackupFile(ctx, baseTime); err != nil {
			return err
		}
		log.Println("initial backup files created!")
		return nil
	}

	log.Println("current backup files:")
	lastCreatedAt := time.Time{}
	for _, file := range currentAllBackupFiles {
		createdAt, err := time.Parse(time.RFC3339, file.CreatedTime)
		if err != nil {
			log.Printf(" ---> error parsing created at for file %s: %s", file.Name, err)
			continue
		}
		log.Printf(" -- [%v]: %s (%s)\n", createdAt, file.Name, file.Id)

		if createdAt.After(lastCreatedAt) {
			lastCreatedAt = createdAt
		}
	}

	workoutsToBackup, err := s.workouts.ListCreatedAfter(ctx, lastCreatedAt)
	if err != nil {
		return fmt.Errorf("failed to get next backup workouts: %w", err)
	}

	if len(workoutsToBackup) == 0 {
		log.Println("no new workouts to backup, done")
		return nil
	}

	log.Printf(" ---- backing up %d workouts since %v", len(workoutsToBackup), lastCreatedAt)

	nextBackupFileName := nextAvailableBaseName(
		currentAllBackupFiles,
		fmt.Sprintf("workouts-%d-%d-%d", baseTime.Day(), baseTime.Month(), baseTime.Year()),
	)

	if err := s.backupWorkouts(workoutsToBackup, nextBackupFileName); err != nil {
		return fmt.Errorf("failed to backup workouts: %w", err)
	}

	log.Printf("next backup since %v successfully saved: %s", lastCreatedAt, nextBackupFileName)

	return nil
}

// nextAvailableBaseName picks a chunk file base name not yet used by any
// existing backup file. Repeated backups on the same day get a _2, _3, ...
// suffix on the base, kept separate from the per-chunk counter.
func nextAvailableBaseName(existingFiles []*drive.File, base string) string {
	nameTaken := func(name string) bool {
		for _, file := range existingFiles {
			if file.Name == name+"_1.json" {
				return true
			}
		}
		return false
	}

	if !nameTaken(base) {
		return base
	}
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s_%d", base, counter)
		if !nameTaken(candidate) {
			return candidate
		}
	}
}

func (s *GoogleDriveBackupService) createRootBackupsFolder() (string, error) {
	backupsFolderMeta := &drive.File{
		Name:     rootBackupsFolderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	bfRes, err := s.service.
		Files.Create(backupsFolderMeta).
		Fields("id").
		Do()
	if err != nil {
		return "", err
	}

	return bfRes.Id, nil
}

func (s *GoogleDriveBackupService) createInitialBackupFile(ctx context.Context, baseTime time.Time) error {
	allWorkouts, err := s.workouts.ListCreatedAfter(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to get workouts from db: %w", err)
	}

	log.Printf("initial backup of %d workouts starting ...", len(allWorkouts))

	baseFileName := fmt.Sprintf("initial-%d-%d-%d", baseTime.Day(), baseTime.Month(), baseTime.Year())
	if err := s.backupWorkouts(allWorkouts, baseFileName); err != nil {
		return fmt.Errorf("failed to backup workouts: %w", err)
	}

	return nil
}

func (s *GoogleDriveBackupService) backupWorkouts(workoutsToBackup []workouts.Workout, baseFileName string) error {
	chunks := len(workoutsToBackup) / workoutsFileChunkSize
	fromIndex, toIndex := 0, workoutsFileChunkSize
	if len(workoutsToBackup)%workoutsFileChunkSize > 0 {
		chunks++
	}

	if len(workoutsToBackup) < workoutsFileChunkSize {
		toIndex = len(workoutsToBackup)
	}

	for i := 1; i <= chunks; i++ {
		nextFileName := fmt.Sprintf("%s_%d.json", baseFileName, i)
		nextWorkouts := workoutsToBackup[fromIndex:toIndex]

		log.Printf("%s: create backup file with %d workouts [from %d to %d] ...", nextFileName, len(nextWorkouts), fromIndex, toIndex)

		nextWorkoutsJson, err := json.Marshal(nextWorkouts)
		if err != nil {
			return fmt.Errorf("%s failed to marshal workouts: %w", nextFileName, err)
		}

		log.Printf("%s: creating file on google drive ...", nextFileName)
		fileMeta := &drive.File{
			Name: nextFileName,
			// https://developers.google.com/drive/api/v3/mime-types
			MimeType: "application/vnd.google-apps.file",
			Parents:  []string{s.backupsFolderId},
		}

		nextBackupChunkFile, err := s.service.
			Files.Create(fileMeta).
			Fields("id, parents").
			Media(bytes.NewReader(nextWorkoutsJson)).
			Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create workouts backup file: %w", nextFileName, err)
		}

		log.Printf("%s: backup file [%s] saved: %s", nextFileName, fileMeta.Name, nextBackupChunkFile.Id)
		s.metricsManager.CounterWorkoutsBackedUp.Add(float64(len(nextWorkouts)))

		fromIndex = toIndex
		toIndex = toIndex + workoutsFileChunkSize
		if toIndex >= len(workoutsToBackup) {
			toIndex = len(workoutsToBackup)
		}
	}

	return nil
}

func (s *GoogleDriveBackupService) getBackupFiles(backupsFolderId string) ([]*drive.File, error) {
	backupsQuery := fmt.Sprintf("'%s' in parents and mimeType != 'application/vnd.google-apps.folder' and trashed = false", backupsFolderId)
	backups, err := s.service.
		Files.List().
		Q(backupsQuery).
		Fields("files(id, name, createdTime)").
		Do()
	if err != nil {
		return nil, err
	}

	return backups.Files, nil
}
