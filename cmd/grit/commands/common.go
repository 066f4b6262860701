package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// openStore opens the sqlite-backed store at dbPath (or the default path).
func openStore() (*gritstore.SqliteStore, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return gritstore.NewSqliteStore(gritstore.SqliteConfig{DatabaseFileName: path}, slog.Default())
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
