package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kurumart/kurumart-backend/pkg/migrate"
)

func TestVehiclesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_vehicles.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no vehicles migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS vehicles",
		"FOREIGN KEY (group_id) REFERENCES auction_groups(id) ON DELETE CASCADE",
		"CHECK (starting_bid_yen >= 0)",
		"CHECK (min_increment_yen >= 0)",
		"DROP TABLE IF EXISTS vehicles",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
