package ids

import (
	"regexp"
	"testing"
	"time"
)

func TestNew_Format(t *testing.T) {
	re := regexp.MustCompile(`^apt_\d+_[0-9a-f]{9}$`)
	id := New("apt")
	if !re.MatchString(id) {
		t.Errorf("unexpected id format: %s", id)
	}
}

func TestNewAt_UsesTimestamp(t *testing.T) {
	ts := time.UnixMilli(1718031234567)
	id := NewAt("lab", ts)
	if id[:18] != "lab_1718031234567_" {
		t.Errorf("unexpected prefix: %s", id)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := New("apt")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
