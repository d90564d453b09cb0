package service

import (
	"context"

	"github.com/muurk/onvifctl/internal/soap"
)

// EventsNamespaces are declared on every events envelope.
var EventsNamespaces = []soap.Namespace{
	{Prefix: "wsa", URI: "http://www.w3.org/2005/08/addressing"},
	{Prefix: "tev", URI: "http://www.onvif.org/ver10/events/wsdl"},
}

// EventsService is a client for the ONVIF event service.
type EventsService struct {
	base
}

// NewEventsService creates an events client.
func NewEventsService(cfg Config) *EventsService {
	return &EventsService{base: newBase(cfg, EventsNamespaces)}
}

// EventProperties summarizes GetEventProperties.
type EventProperties struct {
	TopicNamespaceLocations []string
	FixedTopicSet           bool
	// Topics lists the top-level topic names of the topic set.
	Topics []string
	Result *soap.Result
}

// GetEventProperties describes the event topics a device can produce.
func (s *EventsService) GetEventProperties(ctx context.Context) (*EventProperties, error) {
	const action = "GetEventProperties"
	res, err := s.call(ctx, action, "<tev:GetEventProperties/>")
	if err != nil {
		return nil, err
	}

	p := res.Payload(action)
	props := &EventProperties{
		FixedTopicSet: p.TextAt("FixedTopicSet") == "true",
		Result:        res,
	}
	for _, n := range p.ChildrenNamed("TopicNamespaceLocation") {
		props.TopicNamespaceLocations = append(props.TopicNamespaceLocations, n.Text)
	}
	for _, t := range p.Child("TopicSet").Children {
		props.Topics = append(props.Topics, t.Name)
	}
	return props, nil
}
