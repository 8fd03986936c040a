package timezone

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		want bool
	}{
		{"new york", "America/New_York", true},
		{"utc", "UTC", true},
		{"tokyo", "Asia/Tokyo", true},
		{"kolkata half hour", "Asia/Kolkata", true},
		{"kathmandu quarter hour", "Asia/Kathmandu", true},
		{"chatham", "Pacific/Chatham", true},
		{"three level", "America/Argentina/Buenos_Aires", true},
		{"etc offset", "Etc/GMT+5", true},
		{"legacy link", "US/Eastern", true},
		{"renamed link", "Asia/Calcutta", true},
		{"mars", "Mars/Olympus", false},
		{"empty", "", false},
		{"local", "Local", false},
		{"garbage", "not a zone", false},
		{"trailing space", "America/New_York ", false},
		{"abbreviation", "EST5EDT-nope", false},
		{"offset literal", "+05:30", false},
		{"absolute path", "/etc/localtime", false},
		{"path traversal", "../../etc/passwd", false},
		{"region only", "America", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.tz); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.tz, got, tt.want)
			}
			// memoization must not change the answer
			if got := IsValid(tt.tz); got != tt.want {
				t.Errorf("second IsValid(%q) = %v, want %v", tt.tz, got, tt.want)
			}
		})
	}
}

// Every zone shipped with the Go distribution must be accepted.
func TestIsValidAcceptsWholeDatabase(t *testing.T) {
	path := filepath.Join(runtime.GOROOT(), "lib", "time", "zoneinfo.zip")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("no zoneinfo.zip at %s", path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	checked := 0
	for _, f := range zr.File {
		name := f.Name
		if strings.HasSuffix(name, "/") {
			continue
		}
		if !IsValid(name) {
			t.Errorf("IsValid(%q) = false", name)
		}
		checked++
	}
	if checked < 300 {
		t.Errorf("checked only %d zones", checked)
	}
}

func TestLoadMemoizes(t *testing.T) {
	loc, err := Load("America/New_York")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, err := Load("America/New_York")
	if err != nil || again != loc {
		t.Fatalf("second Load = %p, %v; want memoized %p", again, err, loc)
	}
	if _, err := Load("Local"); err == nil {
		t.Error("Load(Local) should fail")
	}
}

func TestToUTCAndBack(t *testing.T) {
	tests := []struct {
		name string
		wall time.Time
		zone string
		want time.Time
	}{
		// 2024-03-04 is a Monday, EST (UTC-5).
		{"standard time", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), "America/New_York", time.Date(2024, time.March, 4, 14, 0, 0, 0, time.UTC)},
		// After 2024-03-10 02:00 the zone is EDT (UTC-4).
		{"daylight time", time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC), "America/New_York", time.Date(2024, time.March, 11, 13, 0, 0, 0, time.UTC)},
		{"half hour offset", time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), "Asia/Kolkata", time.Date(2024, time.January, 1, 3, 30, 0, 0, time.UTC)},
		// The wall reading counts, not the location it arrives in.
		{"foreign location ignored", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.FixedZone("x", 3600)), "America/New_York", time.Date(2024, time.March, 4, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUTC(tt.wall, tt.zone)
			if err != nil {
				t.Fatalf("ToUTC: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ToUTC = %v, want %v", got, tt.want)
			}
			local, err := ToLocal(got, tt.zone)
			if err != nil {
				t.Fatalf("ToLocal: %v", err)
			}
			if local.Hour() != tt.wall.Hour() || local.Minute() != tt.wall.Minute() || local.Day() != tt.wall.Day() {
				t.Errorf("ToLocal = %v, want wall clock %v", local, tt.wall)
			}
		})
	}

	if _, err := ToUTC(time.Now(), "Mars/Olympus"); err == nil {
		t.Error("ToUTC should reject unknown zones")
	}
	if _, err := ToLocal(time.Now(), ""); err == nil {
		t.Error("ToLocal should reject the empty zone")
	}
}
