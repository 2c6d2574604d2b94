package topics

import (
	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/topicmgr"
)

// Catalog registers every messenger topic with the default manager and
// returns it.
func Catalog() *topicmgr.Manager {
	events.MustRegisterTopics()
	return topicmgr.Default()
}
