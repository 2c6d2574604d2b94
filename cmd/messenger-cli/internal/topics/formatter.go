package topics

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/nfrund/messenger/internal/topicmgr"
)

// TopicDisplay represents a topic for display purposes
type TopicDisplay struct {
	Name        string         `json:"name"`
	NativeEvent string         `json:"nativeEvent"`
	Scope       string         `json:"scope"`
	PayloadType string         `json:"payloadType"`
	Description string         `json:"description"`
	Example     string         `json:"example,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func toDisplay(topic topicmgr.Topic) TopicDisplay {
	return TopicDisplay{
		Name:        topic.Name(),
		NativeEvent: topic.NativeEvent(),
		Scope:       string(topic.Scope()),
		PayloadType: topic.PayloadType(),
		Description: topic.Description(),
		Example:     topic.Example(),
		Metadata:    topic.Metadata(),
	}
}

// DisplayTopicsTable displays topics in a formatted table
func DisplayTopicsTable(w io.Writer, topics []topicmgr.Topic) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tNATIVE EVENT\tSCOPE\tPAYLOAD\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t------------\t-----\t-------\t-----------")

	if len(topics) == 0 {
		fmt.Fprintln(tw, "No topics found")
		return
	}
	for _, topic := range topics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			topic.Name(),
			topic.NativeEvent(),
			topic.Scope(),
			topic.PayloadType(),
			truncateString(topic.Description(), 50))
	}
}

// DisplayTopicsJSON displays topics in JSON format
func DisplayTopicsJSON(w io.Writer, topics []topicmgr.Topic) error {
	displays := make([]TopicDisplay, len(topics))
	for i, topic := range topics {
		displays[i] = toDisplay(topic)
	}

	output := struct {
		Topics []TopicDisplay `json:"topics"`
		Count  int            `json:"count"`
	}{
		Topics: displays,
		Count:  len(displays),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// DisplayTopicDetails displays detailed information for a specific topic
func DisplayTopicDetails(w io.Writer, topic topicmgr.Topic, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(toDisplay(topic))
	}

	fmt.Fprintf(w, "Name:         %s\n", topic.Name())
	fmt.Fprintf(w, "Native event: %s\n", topic.NativeEvent())
	fmt.Fprintf(w, "Scope:        %s\n", topic.Scope())
	fmt.Fprintf(w, "Payload:      %s\n", topic.PayloadType())
	fmt.Fprintf(w, "Description:  %s\n", topic.Description())
	fmt.Fprintf(w, "Example:      %s\n", topic.Example())
	return nil
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
