package state

import "github.com/MikeSquared-Agency/honeypot/internal/extractor"

// TopicState is the serializable form of the topic tracker.
type TopicState struct {
	Active   []extractor.Topic `json:"active"`
	Previous []extractor.Topic `json:"previous"`
}

// TopicTracker keeps the topics the counterpart is currently pressing on.
// A new topic set replaces the active one outright; superseded topics are
// archived, never merged back in.
type TopicTracker struct {
	st TopicState
}

// Update adopts topics as the active set unless nothing was recognized.
func (t *TopicTracker) Update(topics []extractor.Topic) {
	if len(topics) == 0 || containsTopic(topics, extractor.TopicUnknown) {
		return
	}

	for _, old := range t.st.Active {
		if !containsTopic(topics, old) && !containsTopic(t.st.Previous, old) {
			t.st.Previous = append(t.st.Previous, old)
		}
	}
	var prev []extractor.Topic
	for _, p := range t.st.Previous {
		if !containsTopic(topics, p) {
			prev = append(prev, p)
		}
	}
	t.st.Previous = prev
	t.st.Active = append([]extractor.Topic(nil), topics...)
}

// Active returns the live topics.
func (t *TopicTracker) Active() []extractor.Topic {
	return append([]extractor.Topic{}, t.st.Active...)
}

// Previous returns topics the counterpart has moved away from.
func (t *TopicTracker) Previous() []extractor.Topic {
	return append([]extractor.Topic{}, t.st.Previous...)
}

// IsActive reports whether topic is live.
func (t *TopicTracker) IsActive(topic extractor.Topic) bool {
	return containsTopic(t.st.Active, topic)
}

func containsTopic(list []extractor.Topic, topic extractor.Topic) bool {
	for _, t := range list {
		if t == topic {
			return true
		}
	}
	return false
}
