package patients

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Loader returns the full patient dataset.
type Loader interface {
	Load(ctx context.Context) ([]Record, error)
}

type Lookup struct {
	loader Loader
	logger *logrus.Logger
}

func NewLookup(loader Loader, logger *logrus.Logger) *Lookup {
	return &Lookup{
		loader: loader,
		logger: logger,
	}
}

// FindPatient returns the first record matching name and condition, or an
// empty record. A failed read is logged and also yields an empty record.
func (l *Lookup) FindPatient(ctx context.Context, name, condition string) Record {
	records, err := l.loader.Load(ctx)
	if err != nil {
		l.logger.WithError(err).Error("Failed to read patient data")
		return Record{}
	}

	for _, record := range records {
		if record.Matches(name, condition) {
			return record
		}
	}

	l.logger.WithField("records", len(records)).Debug("No matching patient record")
	return Record{}
}
