package outbox

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TopicRoutes maps event types to Kafka topics. Events without an explicit
// entry go to the default topic.
type TopicRoutes struct {
	Default string            `yaml:"default_topic"`
	Topics  map[string]string `yaml:"topics"`
}

func DefaultTopicRoutes() TopicRoutes {
	return TopicRoutes{
		Default: "orders.events",
		Topics: map[string]string{
			"PaymentCreated": "payments.events",
		},
	}
}

func LoadTopicRoutes(path string) (TopicRoutes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TopicRoutes{}, fmt.Errorf("reading topic routes %s: %w", path, err)
	}
	var routes TopicRoutes
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return TopicRoutes{}, fmt.Errorf("parsing topic routes %s: %w", path, err)
	}
	if routes.Default == "" {
		return TopicRoutes{}, fmt.Errorf("topic routes %s: default_topic is required", path)
	}
	return routes, nil
}

func (tr TopicRoutes) TopicFor(eventType string) string {
	if topic, ok := tr.Topics[eventType]; ok {
		return topic
	}
	return tr.Default
}
