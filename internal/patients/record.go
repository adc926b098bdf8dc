package patients

import (
	"encoding/json"
	"io"
	"strings"
)

// Record is a patient entry exactly as stored in the dataset file. Only
// patientName and condition are interpreted.
type Record map[string]interface{}

func (r Record) Name() string {
	return r.stringField("patientName")
}

func (r Record) Condition() string {
	return r.stringField("condition")
}

func (r Record) stringField(key string) string {
	v, ok := r[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Matches compares name and condition case-insensitively. Records missing
// either field never match.
func (r Record) Matches(name, condition string) bool {
	if _, ok := r["patientName"].(string); !ok {
		return false
	}
	if _, ok := r["condition"].(string); !ok {
		return false
	}
	return strings.ToLower(r.Name()) == strings.ToLower(name) &&
		strings.ToLower(r.Condition()) == strings.ToLower(condition)
}

// DecodeRecords reads a JSON array of records. Numbers are kept as
// json.Number so they re-encode exactly as read.
func DecodeRecords(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
