package topic

import (
	"context"

	"github.com/charmbracelet/log"
)

// Map caches topic name -> topic id for the duration of one run. Runs are
// single-flight, so no locking; a parallelized run must serialize access.
type Map map[string]int

// Lister lists the existing forum topics of a group.
type Lister interface {
	ListTopics(ctx context.Context, groupID int64) (map[string]int, error)
}

// Creator creates a forum topic and returns its id.
type Creator interface {
	CreateTopic(ctx context.Context, groupID int64, title string) (int, error)
}

// LoadMap seeds a Map from the destination group's live topic list.
func LoadMap(ctx context.Context, l Lister, groupID int64) (Map, error) {
	topics, err := l.ListTopics(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return Map(topics), nil
}

// Resolve returns the topic id for name, creating the topic in the
// destination group on a cache miss and remembering the new id.
func Resolve(ctx context.Context, c Creator, groupID int64, topics Map, name string) (int, error) {
	if id, ok := topics[name]; ok {
		return id, nil
	}
	id, err := c.CreateTopic(ctx, groupID, name)
	if err != nil {
		return 0, err
	}
	log.FromContext(ctx).Infof("Created topic %q (%d) in group %d", name, id, groupID)
	topics[name] = id
	return id, nil
}
