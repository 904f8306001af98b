package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns an id of the form <prefix>_<unix millis>_<9 random hex chars>,
// e.g. apt_1718031234567_3f9a0c1be.
func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

func NewAt(prefix string, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, t.UnixMilli(), suffix)
}
