package cli

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-tick/remind"
)

// scheduleFile is the YAML layout read by next and worker. A file holds either
// a single schedule at the top level or a list under "schedules".
type scheduleFile struct {
	Schedules []*remind.Schedule `yaml:"schedules"`
}

func readSchedules(path string) ([]*remind.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	return decodeSchedules(data)
}

func decodeSchedules(data []byte) ([]*remind.Schedule, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "decoding schedule file")
	}

	var file scheduleFile
	if hasKey(&root, "schedules") {
		if err := decodeStrict(data, &file); err != nil {
			return nil, err
		}
		if len(file.Schedules) == 0 {
			return nil, errors.New("schedule file lists no schedules")
		}
	} else {
		var single remind.Schedule
		if err := decodeStrict(data, &single); err != nil {
			return nil, err
		}
		file.Schedules = []*remind.Schedule{&single}
	}

	for i, sch := range file.Schedules {
		if sch == nil {
			return nil, errors.Newf("schedule %d is empty", i)
		}
		if sch.Kind == "" {
			sch.Kind = remind.KindRecurring
		}
		if sch.Status == "" {
			sch.Status = remind.StatusActive
		}

		if err := sch.Validate(); err != nil {
			return nil, errors.Wrapf(err, "schedule %d (%s)", i, sch.ID)
		}
	}

	return file.Schedules, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, "decoding schedule file")
	}

	return nil
}

// hasKey reports whether the document is a mapping with key at the top level.
func hasKey(doc *yaml.Node, key string) bool {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return false
	}

	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return false
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}

	return false
}
