package channel

import (
	"errors"
	"fmt"
	"sync"

	"avaneesh/imgstream-go/pkg/appmsg"
)

// Endpoint is a viewer or sender attached to a channel
type Endpoint interface {
	// OnMessage is called with every message received on the channel.
	// The dictionary and its values are owned by the endpoint.
	OnMessage(msg *appmsg.Dictionary) error

	// ID returns the endpoint identifier, unique per channel
	ID() string

	// Type returns the type of endpoint
	Type() EndpointType
}

// EndpointType identifies the type of endpoint
type EndpointType int

const (
	EndpointTypeViewer EndpointType = iota
	EndpointTypeSender
)

// String returns string representation of EndpointType
func (t EndpointType) String() string {
	switch t {
	case EndpointTypeViewer:
		return "Viewer"
	case EndpointTypeSender:
		return "Sender"
	default:
		return "Unknown"
	}
}

// Router delivers received messages to the endpoints attached to a channel.
// The link has no addressing, so every endpoint sees every message.
type Router struct {
	endpoints map[string]Endpoint // Key: endpoint ID
	order     []string
	mu        sync.RWMutex
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		endpoints: make(map[string]Endpoint),
	}
}

// AddEndpoint adds an endpoint to the router
func (r *Router) AddEndpoint(endpoint Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := endpoint.ID()
	if _, exists := r.endpoints[id]; exists {
		return fmt.Errorf("endpoint %q already exists", id)
	}

	r.endpoints[id] = endpoint
	r.order = append(r.order, id)
	return nil
}

// RemoveEndpoint removes an endpoint from the router
func (r *Router) RemoveEndpoint(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[id]; !exists {
		return
	}
	delete(r.endpoints, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Route delivers msg to every endpoint in the order they were added.
// Returns error if no endpoint is attached or any endpoint fails.
func (r *Router) Route(msg *appmsg.Dictionary) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return errors.New("no endpoint attached")
	}

	var errs []error
	for _, id := range r.order {
		if err := r.endpoints[id].OnMessage(msg); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// GetEndpoint returns an endpoint by ID
func (r *Router) GetEndpoint(id string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, exists := r.endpoints[id]
	return endpoint, exists
}

// GetEndpointCount returns the number of attached endpoints
func (r *Router) GetEndpointCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.endpoints)
}

// Clear removes all endpoints
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endpoints = make(map[string]Endpoint)
	r.order = nil
}
