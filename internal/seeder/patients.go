package seeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/sirupsen/logrus"
)

// Saver is satisfied by *patients.S3Store.
type Saver interface {
	Save(ctx context.Context, records []patients.Record) error
}

// PatientSeeder validates a local patient dataset and uploads it.
type PatientSeeder struct {
	store  Saver
	logger *logrus.Logger
}

func NewPatientSeeder(store Saver, logger *logrus.Logger) *PatientSeeder {
	return &PatientSeeder{
		store:  store,
		logger: logger,
	}
}

// LoadFile reads a JSON array of patient records.
func LoadFile(path string) ([]patients.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	records, err := patients.DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}

// Normalize trims surrounding whitespace from the matched fields.
func Normalize(records []patients.Record) {
	for _, record := range records {
		for _, key := range []string{"patientName", "condition"} {
			if v, ok := record[key].(string); ok {
				record[key] = strings.TrimSpace(v)
			}
		}
	}
}

// Validate reports every record without a usable patientName or condition and
// every duplicate name/condition pair, since lookups only return the first match.
func Validate(records []patients.Record) error {
	var errs []error
	seen := make(map[string]int)

	for i, record := range records {
		name, nameOK := record["patientName"].(string)
		condition, condOK := record["condition"].(string)

		if !nameOK || strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("record %d: missing patientName", i))
			continue
		}
		if !condOK || strings.TrimSpace(condition) == "" {
			errs = append(errs, fmt.Errorf("record %d: missing condition", i))
			continue
		}

		key := strings.ToLower(name) + "\x00" + strings.ToLower(condition)
		if first, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("record %d: duplicates record %d (%s / %s)", i, first, name, condition))
			continue
		}
		seen[key] = i
	}

	return errors.Join(errs...)
}

// Seed loads, normalizes, validates and uploads the dataset at path. With
// dryRun nothing is uploaded. It returns the number of records.
func (s *PatientSeeder) Seed(ctx context.Context, path string, dryRun bool) (int, error) {
	records, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	Normalize(records)

	if err := Validate(records); err != nil {
		return 0, fmt.Errorf("invalid patient dataset: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file":    path,
		"records": len(records),
		"dry_run": dryRun,
	}).Info("Patient dataset validated")

	if dryRun {
		return len(records), nil
	}

	if err := s.store.Save(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
