package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
)

// Event is the payload mirrored downstream for every announced entry.
type Event struct {
	ProviderID   string           `json:"provider_id"`
	ProviderName string           `json:"provider_name"`
	Entry        domain.FeedEntry `json:"entry"`
	Line         string           `json:"line"`
	AnnouncedAt  time.Time        `json:"announced_at"`
}

// NewEvent stamps an announced entry with the current time.
func NewEvent(providerID, providerName string, entry domain.FeedEntry, line string) Event {
	return Event{
		ProviderID:   providerID,
		ProviderName: providerName,
		Entry:        entry,
		Line:         line,
		AnnouncedAt:  time.Now().UTC(),
	}
}

// envelope is the wire form shared by the queue and topic sinks: the JSON body
// plus the string attributes consumers filter on.
type envelope struct {
	body  []byte
	attrs map[string]string
}

func (e Event) envelope() (envelope, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{"provider_id": e.ProviderID}
	if e.Entry.ID != "" {
		attrs["entry_id"] = e.Entry.ID
	}
	return envelope{body: body, attrs: attrs}, nil
}
