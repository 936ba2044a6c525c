package catalog

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed live_entry.schema.json
var liveEntrySchemaJSON string

var (
	liveSchemaOnce sync.Once
	liveSchema     *gojsonschema.Schema
	liveSchemaErr  error
)

func liveEntrySchema() (*gojsonschema.Schema, error) {
	liveSchemaOnce.Do(func() {
		liveSchema, liveSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(liveEntrySchemaJSON))
		if liveSchemaErr != nil {
			liveSchemaErr = eris.Wrap(liveSchemaErr, "catalog: compile live entry schema")
		}
	})
	return liveSchema, liveSchemaErr
}

// validateLiveEntry checks one decoded scraper entry against the schema and
// returns a joined description of every violation.
func validateLiveEntry(entry map[string]any) error {
	schema, err := liveEntrySchema()
	if err != nil {
		return err
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(entry))
	if err != nil {
		return eris.Wrap(err, "catalog: validate live entry")
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return eris.Errorf("catalog: invalid live entry: %s", strings.Join(msgs, "; "))
}
