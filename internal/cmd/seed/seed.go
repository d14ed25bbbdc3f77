// Package seed inserts demo countdown widgets for local development.
package seed

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hubdash/hubdash/internal/services/countdown/storage"
	countdownsqlite "github.com/hubdash/hubdash/internal/services/countdown/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath string
	UserID string
}

// ParseConfig parses flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		DBPath: filepath.Join("data", "countdown.db"),
		UserID: "demo-user",
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the countdown SQLite database")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user id to own the demo widgets")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// demoWidget describes one widget fixture.
type demoWidget struct {
	title    string
	settings string
}

// demoWidgets covers every supported countdown source kind once.
var demoWidgets = []demoWidget{
	{
		title:    "New Year",
		settings: `{"source":"fixed-date","targetIso":"2027-01-01T00:00:00+01:00"}`,
	},
	{
		title:    "Payday",
		settings: `{"source":"monthly-rule","dayOfMonth":25,"time":"08:00"}`,
	},
	{
		title:    "Last Friday Review",
		settings: `{"source":"monthly-rule","byWeekday":"FR","bySetPos":-1,"time":"14:00"}`,
	},
	{
		title:    "Trippel-Trumf Torsdag",
		settings: `{"source":"provider","provider":"trippel-trumf"}`,
	},
	{
		title:    "DNB Supertilbud",
		settings: `{"source":"provider","provider":"dnb-supertilbud"}`,
	},
}

// Run inserts one demo widget per source kind and reports the instance ids.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	store, err := countdownsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open countdown store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	for _, widget := range demoWidgets {
		instanceID := uuid.NewString()
		err := store.CreateUserWidget(ctx, storage.UserWidget{
			UserID:     cfg.UserID,
			InstanceID: instanceID,
			Kind:       "countdown",
			Title:      widget.title,
			Settings:   json.RawMessage(widget.settings),
		})
		if err != nil {
			return fmt.Errorf("seed widget %q: %w", widget.title, err)
		}
		fmt.Fprintf(out, "seeded %s instanceId=%s user=%s\n", widget.title, instanceID, cfg.UserID)
	}
	return nil
}
